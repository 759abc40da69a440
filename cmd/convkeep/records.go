package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/service/ui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one conversation in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		rec, err := rt.records.Get(ctx, args[0])
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("no conversation with id %s", args[0])
		}
		if err != nil {
			return err
		}

		title := rec.Title
		if title == "" {
			title = snippet(rec.Question, 60)
		}
		fmt.Println(ui.TitleStyle.Render(title))
		fmt.Printf("%s %s · %s\n", ui.IDStyle.Render(rec.ID), rec.Platform,
			rec.Timestamp.Local().Format("2006-01-02 15:04"))
		if rec.PageURL != "" {
			fmt.Println(ui.DescStyle.Render(rec.PageURL))
		}
		if len(rec.Tags) > 0 {
			fmt.Printf("Tags: %s\n", strings.Join(rec.Tags, ", "))
		}
		if rec.Category != "" {
			fmt.Printf("Category: %s\n", rec.Category)
		}
		fmt.Printf("\n%s\n%s\n", ui.UsageStyle.Render("Q:"), rec.Question)
		fmt.Printf("\n%s\n%s\n", ui.UsageStyle.Render("A:"), rec.Answer)
		if rec.Notes != "" {
			fmt.Printf("\n%s\n%s\n", ui.UsageStyle.Render("Notes:"), rec.Notes)
		}
		return nil
	},
}

var (
	editTags     []string
	editCategory string
	editNotes    string
	editFavorite bool
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit tags, category, notes or favorite of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		// Only flags the user actually set are written; the rest of the
		// record stays untouched.
		upd := core.RecordUpdate{}
		if cmd.Flags().Changed("tags") {
			upd.Tags = &editTags
		}
		if cmd.Flags().Changed("category") {
			upd.Category = &editCategory
		}
		if cmd.Flags().Changed("notes") {
			upd.Notes = &editNotes
		}
		if cmd.Flags().Changed("favorite") {
			upd.Favorite = &editFavorite
		}
		if upd.Tags == nil && upd.Category == nil && upd.Notes == nil && upd.Favorite == nil {
			return errors.New("nothing to change; pass at least one of --tags, --category, --notes, --favorite")
		}

		if err := rt.records.Update(ctx, args[0], upd); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("no conversation with id %s", args[0])
			}
			return err
		}
		fmt.Printf("Updated %s\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.records.Delete(ctx, args[0]); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("no conversation with id %s", args[0])
			}
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	editCmd.Flags().StringSliceVar(&editTags, "tags", nil, "replace the tag list")
	editCmd.Flags().StringVar(&editCategory, "category", "", "set the category")
	editCmd.Flags().StringVar(&editNotes, "notes", "", "set the notes")
	editCmd.Flags().BoolVar(&editFavorite, "favorite", false, "set or clear the favorite flag")
	rootCmd.AddCommand(showCmd, editCmd, deleteCmd)
}
