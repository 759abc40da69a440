package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/inbucket/html2text"

	"github.com/sandevgo/convkeep/internal/core"
)

func writeMarkdown(w io.Writer, records []core.ConversationRecord) error {
	for i, rec := range records {
		if i > 0 {
			if _, err := fmt.Fprint(w, "\n---\n\n"); err != nil {
				return err
			}
		}

		title := heading(rec)
		if rec.Favorite {
			title = "★ " + title
		}
		fmt.Fprintf(w, "## %s\n\n", title)
		fmt.Fprintf(w, "- Platform: %s\n", rec.Platform)
		fmt.Fprintf(w, "- Captured: %s\n", rec.Timestamp.Format("2006-01-02 15:04"))
		if rec.PageURL != "" {
			fmt.Fprintf(w, "- Source: %s\n", rec.PageURL)
		}
		if len(rec.Tags) > 0 {
			fmt.Fprintf(w, "- Tags: %s\n", strings.Join(rec.Tags, ", "))
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "**Q:** %s\n\n", rec.Question)
		fmt.Fprintf(w, "**A:**\n\n%s\n", answerText(rec))

		if rec.Notes != "" {
			fmt.Fprintf(w, "\n> %s\n", rec.Notes)
		}
	}
	return nil
}

// answerText prefers the HTML snapshot, flattened to text, since it retains
// structure (lists, code fences become indentation) the plain extraction
// collapsed.
func answerText(rec core.ConversationRecord) string {
	if rec.AnswerHTML == "" {
		return rec.Answer
	}
	text, err := html2text.FromString(rec.AnswerHTML, html2text.Options{
		OmitLinks:    false,
		PrettyTables: true,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		return rec.Answer
	}
	return text
}
