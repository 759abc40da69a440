// Package records ties the persistent store and the search index together so
// every write keeps the searchable-text cache consistent for the caller that
// made it.
package records

import (
	"context"
	"fmt"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/search"
	"github.com/sandevgo/convkeep/pkg/log"
)

// Service implements core.ConversationStore, forwarding to the real store
// and updating the index in the same call.
type Service struct {
	store core.ConversationStore
	index *search.Indexer
}

func NewService(store core.ConversationStore, index *search.Indexer) *Service {
	return &Service{store: store, index: index}
}

// Init builds the index from the stored record set.
func (s *Service) Init(ctx context.Context) error {
	if err := s.index.Rebuild(ctx); err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}
	return nil
}

func (s *Service) Submit(ctx context.Context, rec core.ConversationRecord) (core.SubmitResult, error) {
	res, err := s.store.Submit(ctx, rec)
	if err != nil {
		return res, err
	}
	if res.Accepted {
		s.index.Index(rec)
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id string) (core.ConversationRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetAll(ctx context.Context) ([]core.ConversationRecord, error) {
	return s.store.GetAll(ctx)
}

func (s *Service) Update(ctx context.Context, id string, upd core.RecordUpdate) error {
	if err := s.store.Update(ctx, id, upd); err != nil {
		return err
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		// The row was just written; a read failure here leaves the cache
		// stale for this record but searches still fall back to the store.
		log.FromCtx(ctx).Warn().Err(err).Str("id", id).Msg("failed to refresh index entry")
		s.index.Remove(id)
		return nil
	}
	s.index.Index(rec)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.index.Remove(id)
	return nil
}

func (s *Service) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	return s.store.ExistingIDs(ctx, ids)
}

func (s *Service) Platforms(ctx context.Context) ([]string, error) {
	return s.store.Platforms(ctx)
}

func (s *Service) Tags(ctx context.Context) ([]string, error) {
	return s.store.Tags(ctx)
}

func (s *Service) Statistics(ctx context.Context) (core.Statistics, error) {
	return s.store.Statistics(ctx)
}

func (s *Service) Capacity(ctx context.Context) (core.CapacityStatus, error) {
	return s.store.Capacity(ctx)
}

// Search runs a query against the index.
func (s *Service) Search(ctx context.Context, query string, opts core.SearchOptions) ([]core.SearchResult, error) {
	return s.index.Search(ctx, query, opts)
}
