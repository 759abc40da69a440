package bridge

import "github.com/sandevgo/convkeep/internal/capture"

// Message types sent by the page shim.
const (
	msgHello      = "hello"      // first message: page location + state
	msgLoad       = "load"       // document finished loading
	msgSnapshot   = "snapshot"   // reply to a snapshot request
	msgMutations  = "mutations"  // batched DOM mutation hints
	msgVisibility = "visibility" // tab foreground/background flip
	msgBye        = "bye"        // page is going away
)

// Message types sent to the page shim.
const (
	msgObserve         = "observe"          // start mutation reporting under a selector
	msgSnapshotRequest = "snapshot_request" // ask for the current DOM
)

// clientMessage is the envelope for everything the shim sends.
type clientMessage struct {
	Type       string     `json:"type"`
	URL        string     `json:"url,omitempty"`
	ReadyState string     `json:"readyState,omitempty"`
	Visible    *bool      `json:"visible,omitempty"`
	HTML       string     `json:"html,omitempty"`
	RequestID  int64      `json:"requestId,omitempty"`
	Hints      []nodeHint `json:"hints,omitempty"`
}

// serverMessage is the envelope for everything sent to the shim.
type serverMessage struct {
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	RequestID int64  `json:"requestId,omitempty"`
}

type nodeHint struct {
	Tag         string     `json:"tag,omitempty"`
	ID          string     `json:"id,omitempty"`
	Classes     []string   `json:"classes,omitempty"`
	Descendants []nodeHint `json:"descendants,omitempty"`
}

func toCaptureHints(hints []nodeHint) []capture.NodeHint {
	if len(hints) == 0 {
		return nil
	}
	out := make([]capture.NodeHint, len(hints))
	for i, h := range hints {
		out[i] = capture.NodeHint{
			Tag:         h.Tag,
			ID:          h.ID,
			Classes:     h.Classes,
			Descendants: toCaptureHints(h.Descendants),
		}
	}
	return out
}
