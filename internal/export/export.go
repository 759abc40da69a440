// Package export renders stored conversations to interchange formats. HTML
// snapshots are sanitized again on the way out; what the adapters cleaned is
// still not trusted for direct rendering.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/pkg/log"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
)

// Options selects what to export and how. IDs, when set, wins over the
// filter fields.
type Options struct {
	Format       Format
	IDs          []string
	Platform     string
	Tags         []string
	StartTime    time.Time
	EndTime      time.Time
	FavoriteOnly bool
}

type Manager struct {
	store core.ConversationStore
}

func NewManager(store core.ConversationStore) *Manager {
	return &Manager{store: store}
}

// Export writes the selected records to w in the requested format.
func (m *Manager) Export(ctx context.Context, w io.Writer, opts Options) error {
	records, err := m.collect(ctx, opts)
	if err != nil {
		return err
	}
	log.FromCtx(ctx).Info().
		Int("records", len(records)).
		Str("format", string(opts.Format)).
		Msg("exporting conversations")

	switch opts.Format {
	case FormatJSON, "":
		return writeJSON(w, records)
	case FormatMarkdown:
		return writeMarkdown(w, records)
	case FormatHTML:
		return writeHTML(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unsupported export format %q", opts.Format)
	}
}

func (m *Manager) collect(ctx context.Context, opts Options) ([]core.ConversationRecord, error) {
	if len(opts.IDs) > 0 {
		records := make([]core.ConversationRecord, 0, len(opts.IDs))
		for _, id := range opts.IDs {
			rec, err := m.store.Get(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("record %q: %w", id, err)
			}
			records = append(records, rec)
		}
		return records, nil
	}

	all, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	var records []core.ConversationRecord
	for _, rec := range all {
		if opts.Platform != "" && rec.Platform != opts.Platform {
			continue
		}
		if opts.FavoriteOnly && !rec.Favorite {
			continue
		}
		if !opts.StartTime.IsZero() && rec.Timestamp.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && rec.Timestamp.After(opts.EndTime) {
			continue
		}
		if len(opts.Tags) > 0 && !hasAnyTag(rec.Tags, opts.Tags) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// heading picks a display label for one record.
func heading(rec core.ConversationRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	const maxLen = 60
	runes := []rune(rec.Question)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "…"
	}
	return rec.Question
}
