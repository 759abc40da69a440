package core

import (
	"context"
	"errors"
)

// ErrStoreClosed reports that the channel to the record store is gone for
// good. The capture loop treats it as terminal for the page session.
var ErrStoreClosed = errors.New("conversation store closed")

// ErrNotFound reports a lookup for an id that is not stored.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore is the persistence collaborator of the capture pipeline.
// Submit has upsert-by-id semantics: resubmitting a stored id reports a
// duplicate without touching the stored record.
type ConversationStore interface {
	Submit(ctx context.Context, rec ConversationRecord) (SubmitResult, error)
	Get(ctx context.Context, id string) (ConversationRecord, error)
	GetAll(ctx context.Context) ([]ConversationRecord, error)
	Update(ctx context.Context, id string, upd RecordUpdate) error
	Delete(ctx context.Context, id string) error

	// ExistingIDs returns the subset of candidate ids already stored,
	// resolved in a single batched query.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)

	Platforms(ctx context.Context) ([]string, error)
	Tags(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context) (Statistics, error)
	Capacity(ctx context.Context) (CapacityStatus, error)
}

// DomainAllowlist answers whether capture is enabled for a hostname.
type DomainAllowlist interface {
	IsTracked(ctx context.Context, hostname string) (bool, error)
}
