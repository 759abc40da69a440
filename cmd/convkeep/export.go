package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sandevgo/convkeep/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat    string
	exportOut       string
	exportIDs       []string
	exportPlatform  string
	exportTags      []string
	exportFavorites bool
	exportFrom      string
	exportTo        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations to JSON, Markdown, HTML or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := export.Options{
			Format:       export.Format(exportFormat),
			IDs:          exportIDs,
			Platform:     exportPlatform,
			Tags:         exportTags,
			FavoriteOnly: exportFavorites,
		}
		if opts.StartTime, err = parseDay(exportFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		if opts.EndTime, err = parseDayEnd(exportTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		var w io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		if err := rt.exporter.Export(ctx, w, opts); err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Printf("Exported to %s\n", exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json, markdown, html or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
	exportCmd.Flags().StringSliceVar(&exportIDs, "ids", nil, "export exactly these record ids")
	exportCmd.Flags().StringVar(&exportPlatform, "platform", "", "only this platform")
	exportCmd.Flags().StringSliceVar(&exportTags, "tags", nil, "only records carrying any of these tags")
	exportCmd.Flags().BoolVar(&exportFavorites, "favorites", false, "only favorites")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "only records on or after this day (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "only records on or before this day (YYYY-MM-DD)")
	rootCmd.AddCommand(exportCmd)
}
