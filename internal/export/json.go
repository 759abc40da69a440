package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sandevgo/convkeep/internal/core"
)

// envelope is the JSON export wrapper. Version bumps when the record shape
// changes incompatibly.
type envelope struct {
	Version    int                       `json:"version"`
	ExportedAt time.Time                 `json:"exportedAt"`
	Count      int                       `json:"count"`
	Records    []core.ConversationRecord `json:"records"`
}

const envelopeVersion = 1

func writeJSON(w io.Writer, records []core.ConversationRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{
		Version:    envelopeVersion,
		ExportedAt: time.Now(),
		Count:      len(records),
		Records:    records,
	})
}
