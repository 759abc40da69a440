package export

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/pkg/conv"
)

var exportPolicy = conv.ExportPolicy()

const htmlDocHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Exported conversations</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a2e; }
article { border: 1px solid #ddd; border-radius: 8px; padding: 1rem 1.5rem; margin-bottom: 1.5rem; }
h2 { margin-top: 0; }
.meta { color: #666; font-size: 0.85rem; margin-bottom: 1rem; }
.question { background: #f0f4ff; border-radius: 6px; padding: 0.75rem 1rem; margin-bottom: 1rem; }
.notes { border-left: 3px solid #c9a227; padding-left: 0.75rem; color: #555; }
pre { background: #f6f8fa; padding: 0.75rem; border-radius: 6px; overflow-x: auto; }
code { font-family: ui-monospace, monospace; }
</style>
</head>
<body>
<h1>Exported conversations</h1>
`

const htmlDocFoot = "</body>\n</html>\n"

func writeHTML(w io.Writer, records []core.ConversationRecord) error {
	if _, err := io.WriteString(w, htmlDocHead); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writeHTMLRecord(w, rec); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, htmlDocFoot)
	return err
}

func writeHTMLRecord(w io.Writer, rec core.ConversationRecord) error {
	var meta []string
	meta = append(meta, html.EscapeString(rec.Platform))
	meta = append(meta, rec.Timestamp.Format("2006-01-02 15:04"))
	if len(rec.Tags) > 0 {
		meta = append(meta, html.EscapeString(strings.Join(rec.Tags, ", ")))
	}

	title := html.EscapeString(heading(rec))
	if rec.Favorite {
		title = "★ " + title
	}

	fmt.Fprintln(w, "<article>")
	fmt.Fprintf(w, "<h2>%s</h2>\n", title)
	fmt.Fprintf(w, "<div class=\"meta\">%s</div>\n", strings.Join(meta, " · "))
	fmt.Fprintf(w, "<div class=\"question\">%s</div>\n", fieldHTML(rec.QuestionHTML, rec.Question, exportPolicy))
	fmt.Fprintf(w, "<div class=\"answer\">%s</div>\n", fieldHTML(rec.AnswerHTML, rec.Answer, exportPolicy))
	if rec.Notes != "" {
		fmt.Fprintf(w, "<div class=\"notes\">%s</div>\n", html.EscapeString(rec.Notes))
	}
	_, err := fmt.Fprintln(w, "</article>")
	return err
}

// fieldHTML renders one Q/A field: the captured snapshot re-sanitized when
// present, otherwise the plain text treated as markdown.
func fieldHTML(snapshot, plain string, policy *bluemonday.Policy) string {
	if snapshot != "" {
		if sanitized := strings.TrimSpace(policy.Sanitize(snapshot)); sanitized != "" {
			return sanitized
		}
	}
	return conv.MarkdownToHTML([]byte(plain), policy)
}
