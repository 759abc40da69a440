package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/service/ui"
	"github.com/spf13/cobra"
)

var (
	searchPlatform  string
	searchTags      []string
	searchFavorites bool
	searchSort      string
	searchLimit     int
	searchFrom      string
	searchTo        string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search captured conversations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := core.SearchOptions{
			Platform:     searchPlatform,
			Tags:         searchTags,
			FavoriteOnly: searchFavorites,
			Limit:        searchLimit,
		}
		if searchSort == "time" {
			opts.SortBy = core.SortByTime
		}
		if opts.StartTime, err = parseDay(searchFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		if opts.EndTime, err = parseDayEnd(searchTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		results, err := rt.records.Search(ctx, args[0], opts)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No conversations matched.")
			return nil
		}

		for _, res := range results {
			rec := res.Record
			title := rec.Title
			if title == "" {
				title = snippet(rec.Question, 60)
			}
			meta := fmt.Sprintf("%s · %s · score %d",
				rec.Platform, rec.Timestamp.Local().Format("2006-01-02 15:04"), res.Score)

			fmt.Printf("%s  %s\n", ui.IDStyle.Render(rec.ID), ui.TitleStyle.Render(title))
			fmt.Printf("  %s\n", ui.DescStyle.Render(meta))
			fmt.Printf("  %s\n\n", snippet(rec.Answer, 120))
		}
		fmt.Printf("%d conversation(s)\n", len(results))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchPlatform, "platform", "", "only this platform (e.g. Gemini)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "only records carrying any of these tags")
	searchCmd.Flags().BoolVar(&searchFavorites, "favorites", false, "only favorites")
	searchCmd.Flags().StringVar(&searchSort, "sort", "relevance", "sort order: relevance or time")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (0 = default)")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "only records on or after this day (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "only records on or before this day (YYYY-MM-DD)")
	rootCmd.AddCommand(searchCmd)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseDayEnd makes the upper bound cover the whole named day.
func parseDayEnd(s string) (time.Time, error) {
	t, err := parseDay(s)
	if err != nil || t.IsZero() {
		return t, err
	}
	return t.Add(24*time.Hour - time.Nanosecond), nil
}

func snippet(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
