package conv

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags | html.HrefTargetBlank
)

// ExportPolicy allows the formatting that chat transcripts legitimately
// carry (code blocks, lists, links, tables) and nothing executable.
func ExportPolicy() *bluemonday.Policy {
	return bluemonday.UGCPolicy()
}

// MarkdownToHTML renders markdown and sanitizes the result with policy.
// Chat answers are markdown-shaped even when captured as plain text, so this
// is the fallback path when no HTML snapshot exists.
func MarkdownToHTML(md []byte, policy *bluemonday.Policy) string {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	unsafeHTML := markdown.Render(p.Parse(md), renderer)

	return string(policy.SanitizeBytes(unsafeHTML))
}
