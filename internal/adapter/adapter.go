// Package adapter turns platform-specific chat page DOMs into normalized
// conversation records. One adapter per platform; all are stateless and
// safe to call repeatedly against the same page.
package adapter

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sandevgo/convkeep/internal/core"
)

// Adapter extracts conversation turns from a parsed page.
//
// Detect must be a cheap, side-effect-free read of the page location.
// ExtractConversations must be idempotent (unchanged DOM yields identical id
// sets), must deduplicate within a single call, and must never fail: a page
// that has not rendered yet produces an empty slice.
type Adapter interface {
	Name() string
	Detect(page *Page) bool
	ExtractConversations(page *Page) []core.ConversationRecord

	// ObserveTarget is the CSS selector of the narrowest container worth
	// watching for mutations; empty means the whole document.
	ObserveTarget() string

	// MutationKeywords is the class/id allowlist used to drop irrelevant
	// mutation batches before any scan work.
	MutationKeywords() []string
}

// Page is a parsed snapshot of a chat page plus its location.
type Page struct {
	doc *goquery.Document
	url *url.URL
	raw string
}

// ParsePage parses an HTML snapshot captured from pageURL.
func ParsePage(htmlSrc, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return nil, err
	}
	return &Page{doc: doc, url: u, raw: htmlSrc}, nil
}

func (p *Page) URL() string      { return p.url.String() }
func (p *Page) Hostname() string { return p.url.Hostname() }

// Find runs a CSS selector against the whole document.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// DocumentTitle returns the trimmed <title> text.
func (p *Page) DocumentTitle() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// Body returns the document body selection.
func (p *Page) Body() *goquery.Selection {
	return p.doc.Find("body").First()
}

// text extracts the visible text of a selection, trimmed. A nil or empty
// selection yields "".
func text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.First().Text())
}

// firstMatch tries selectors in priority order and returns the first one
// that yields any match. Tolerates upstream markup changes without total
// breakage.
func firstMatch(root *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}
