package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/pkg/log"
)

// DefaultLimit caps result counts when the caller does not.
const DefaultLimit = 50

// RecordSource is the subset of the store the indexer reads from.
type RecordSource interface {
	GetAll(ctx context.Context) ([]core.ConversationRecord, error)
}

// Indexer maintains an in-memory cache of lowercased searchable text per
// record id and runs queries against the source's record set. The cache is
// transient: it is rebuilt from the source on startup and kept in sync by
// the write path calling Index/Remove alongside every mutation.
type Indexer struct {
	source RecordSource

	mu      sync.RWMutex
	entries map[string]string // record id -> lowercased searchable text
}

func NewIndexer(source RecordSource) *Indexer {
	return &Indexer{
		source:  source,
		entries: make(map[string]string),
	}
}

// Rebuild replaces the whole cache from the source's current record set.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	records, err := ix.source.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	entries := make(map[string]string, len(records))
	for _, rec := range records {
		entries[rec.ID] = searchableText(rec)
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.mu.Unlock()

	log.FromCtx(ctx).Debug().Int("records", len(records)).Msg("search index rebuilt")
	return nil
}

// Index caches the searchable text for a new or updated record. Callers must
// invoke it in the same operation as the store write so a search issued right
// after the write sees the new text.
func (ix *Indexer) Index(rec core.ConversationRecord) {
	text := searchableText(rec)

	ix.mu.Lock()
	ix.entries[rec.ID] = text
	ix.mu.Unlock()
}

// Remove evicts a deleted record's cache entry.
func (ix *Indexer) Remove(id string) {
	ix.mu.Lock()
	delete(ix.entries, id)
	ix.mu.Unlock()
}

// Search runs a substring query with filtering, scoring, sorting and a
// result cap. An empty or whitespace query returns no results.
func (ix *Indexer) Search(ctx context.Context, query string, opts core.SearchOptions) ([]core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	q := strings.ToLower(query)

	records, err := ix.source.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	var results []core.SearchResult
	for _, rec := range records {
		if !matchesFilters(rec, opts) {
			continue
		}
		// Hard filter: records whose searchable text does not contain the
		// query are out entirely, not ranked at zero.
		if !strings.Contains(ix.textFor(rec), q) {
			continue
		}
		results = append(results, core.SearchResult{
			Record: rec,
			Score:  scoreRecord(rec, q),
			Highlights: core.Highlights{
				Question: literalMatches(rec.Question, q),
				Answer:   literalMatches(rec.Answer, q),
			},
		})
	}

	if opts.SortBy == core.SortByTime {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Record.Timestamp.After(results[j].Record.Timestamp)
		})
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// textFor returns the cached searchable text, deriving and caching it on a
// miss so records added out of band are still searchable.
func (ix *Indexer) textFor(rec core.ConversationRecord) string {
	ix.mu.RLock()
	text, ok := ix.entries[rec.ID]
	ix.mu.RUnlock()
	if ok {
		return text
	}

	text = searchableText(rec)
	ix.mu.Lock()
	ix.entries[rec.ID] = text
	ix.mu.Unlock()
	return text
}

func searchableText(rec core.ConversationRecord) string {
	parts := []string{rec.Question, rec.Answer}
	parts = append(parts, rec.Tags...)
	if rec.Category != "" {
		parts = append(parts, rec.Category)
	}
	if rec.Notes != "" {
		parts = append(parts, rec.Notes)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesFilters(rec core.ConversationRecord, opts core.SearchOptions) bool {
	if opts.Platform != "" && rec.Platform != opts.Platform {
		return false
	}
	if opts.FavoriteOnly && !rec.Favorite {
		return false
	}
	if !opts.StartTime.IsZero() && rec.Timestamp.Before(opts.StartTime) {
		return false
	}
	if !opts.EndTime.IsZero() && rec.Timestamp.After(opts.EndTime) {
		return false
	}
	if len(opts.Tags) > 0 && !hasAnyTag(rec.Tags, opts.Tags) {
		return false
	}
	return true
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

// scoreRecord weights whole-query matches about 3x token matches and
// question-field matches about 2x answer-field matches.
func scoreRecord(rec core.ConversationRecord, q string) int {
	question := strings.ToLower(rec.Question)
	answer := strings.ToLower(rec.Answer)

	score := 0
	if strings.Contains(question, q) {
		score += 10
	}
	if strings.Contains(answer, q) {
		score += 5
	}

	questionTokens := tokenSet(question)
	answerTokens := tokenSet(answer)
	for _, tok := range strings.Fields(q) {
		if questionTokens[tok] {
			score += 3
		}
		if answerTokens[tok] {
			score += 1
		}
	}
	return score
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// literalMatches collects the distinct case-insensitive occurrences of the
// lowercased query q in field, preserving each occurrence's original casing.
func literalMatches(field, q string) []string {
	lower := strings.ToLower(field)
	if len(lower) != len(field) {
		// Lowercasing changed byte offsets (rare non-ASCII case folding);
		// fall back to a single representative match.
		if strings.Contains(lower, q) {
			return []string{q}
		}
		return nil
	}

	seen := make(map[string]bool)
	var matches []string
	for i := 0; ; {
		j := strings.Index(lower[i:], q)
		if j < 0 {
			break
		}
		start := i + j
		m := field[start : start+len(q)]
		if !seen[m] {
			seen[m] = true
			matches = append(matches, m)
		}
		i = start + len(q)
	}
	return matches
}
