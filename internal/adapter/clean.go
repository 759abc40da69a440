package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Attributes stripped from every element in a snapshot. Event handlers are
// matched by prefix; the rest are framework-internal noise from the source
// pages. This is a conservative allow-nothing-dangerous transform, not a
// full sanitizer: the result must be sanitized again at render/export time.
var strippedAttrs = map[string]struct{}{
	"data-test-id":         {},
	"jslog":                {},
	"data-ved":             {},
	"data-hveid":           {},
	"aria-describedby":     {},
	"cdk-describedby-host": {},
}

var strippedAttrPrefixes = []string{"on", "_ng", "ng-"}

var strippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
}

// snapshotHTML captures the inner HTML of the selection's first element,
// working on a cloned subtree so the parsed page is never mutated.
func snapshotHTML(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	clone := cloneTree(sel.Get(0))
	cleanTree(clone)

	var b strings.Builder
	for c := clone.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return ""
		}
	}
	return strings.TrimSpace(b.String())
}

// joinedSnapshotHTML cleans each element in the selection separately and
// joins the fragments with blank lines.
func joinedSnapshotHTML(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if frag := snapshotHTML(s); frag != "" {
			parts = append(parts, frag)
		}
	})
	return strings.Join(parts, "\n\n")
}

func cloneTree(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneTree(c))
	}
	return clone
}

// cleanTree strips disallowed elements, hidden elements and unsafe or
// framework-internal attributes from a cloned subtree.
func cleanTree(n *html.Node) {
	filterAttrs(n)

	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && shouldDropElement(c) {
			n.RemoveChild(c)
			continue
		}
		cleanTree(c)
	}
}

func shouldDropElement(n *html.Node) bool {
	if _, drop := strippedElements[n.Data]; drop {
		return true
	}
	return isHiddenElement(n)
}

// isHiddenElement matches the visually-hidden patterns the source pages
// use: an inline display:none, the hidden attribute, or the CDK utility
// class.
func isHiddenElement(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") {
				return true
			}
		case "class":
			if strings.Contains(a.Val, "cdk-visually-hidden") {
				return true
			}
		}
	}
	return false
}

func filterAttrs(n *html.Node) {
	if n.Type != html.ElementNode || len(n.Attr) == 0 {
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if !shouldDropAttr(a.Key) {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func shouldDropAttr(name string) bool {
	name = strings.ToLower(name)
	if _, drop := strippedAttrs[name]; drop {
		return true
	}
	for _, prefix := range strippedAttrPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
