package main

import (
	"fmt"
	"sort"

	"github.com/sandevgo/convkeep/internal/service/ui"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics and capacity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.records.Statistics(ctx)
		if err != nil {
			return err
		}
		capacity, err := rt.records.Capacity(ctx)
		if err != nil {
			return err
		}

		fmt.Println(ui.TitleStyle.Render("STORAGE"))
		fmt.Printf("  Conversations: %d\n", stats.TotalCount)
		fmt.Printf("  Size:          %s of %s (%.1f%%)\n",
			formatBytes(capacity.CurrentSize), formatBytes(capacity.MaxSize), capacity.UsageRatio*100)
		if stats.TotalCount > 0 {
			fmt.Printf("  Oldest:        %s\n", stats.OldestAt.Local().Format("2006-01-02 15:04"))
			fmt.Printf("  Newest:        %s\n", stats.NewestAt.Local().Format("2006-01-02 15:04"))
		}

		if len(stats.Platforms) > 0 {
			fmt.Println()
			fmt.Println(ui.TitleStyle.Render("PLATFORMS"))
			names := make([]string, 0, len(stats.Platforms))
			for name := range stats.Platforms {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-12s %d\n", name, stats.Platforms[name])
			}
		}

		if capacity.Warning != nil {
			fmt.Println()
			fmt.Println(ui.WarnStyle.Render(capacity.Warning.Message))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
