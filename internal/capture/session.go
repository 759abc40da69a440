package capture

import (
	"context"

	"github.com/sandevgo/convkeep/internal/adapter"
)

// PageSession is the capture loop's view of one live chat page. The bridge
// backs it with a browser connection; tests back it with a scripted fake.
type PageSession interface {
	// URL returns the page location the session was opened for.
	URL() string

	// Ready is closed once the document has finished loading. Sessions
	// opened against an already-loaded page close it immediately.
	Ready() <-chan struct{}

	// Page returns a freshly parsed snapshot of the current DOM.
	Page(ctx context.Context) (*adapter.Page, error)

	// Observe starts mutation reporting for the subtree selected by target
	// (empty target observes the whole document). The channel closes when
	// the session ends.
	Observe(ctx context.Context, target string) (<-chan MutationBatch, error)

	// Visible reports whether the page is currently foregrounded.
	Visible() bool

	// Visibility emits foreground/background transitions.
	Visibility() <-chan bool

	// Closed is closed when the session is severed for good: the page
	// navigated away, the connection dropped, or the peer said goodbye.
	Closed() <-chan struct{}
}

// MutationBatch is one delivery of DOM mutation hints.
type MutationBatch struct {
	Hints []NodeHint
}

// NodeHint describes an added or changed node. Descendants carry at most two
// levels so the relevance check stays shallow.
type NodeHint struct {
	Tag         string
	ID          string
	Classes     []string
	Descendants []NodeHint
}
