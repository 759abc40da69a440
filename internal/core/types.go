package core

import "time"

const (
	AppName       = "convkeep"
	AppUserAgent  = "ConvKeep/0.1"
	RepositoryURL = "https://github.com/sandevgo/convkeep"
	AppVersion    = "0.1.0"
)

// ConversationRecord is one captured question/answer exchange.
// The id is derived from (platform, pageUrl, question, answer) and is the
// upsert key everywhere; re-extracting an unchanged turn yields the same id.
type ConversationRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Platform  string    `json:"platform"`
	Domain    string    `json:"domain"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`

	// Cleaned HTML snapshots of the source elements. Present only when
	// extraction succeeded; still unsafe for direct rendering and must be
	// sanitized again at export time.
	QuestionHTML string `json:"questionHtml,omitempty"`
	AnswerHTML   string `json:"answerHtml,omitempty"`

	Title   string `json:"title,omitempty"`
	PageURL string `json:"pageUrl,omitempty"`

	// User-editable metadata. Never written by the capture pipeline.
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Favorite bool     `json:"favorite,omitempty"`
}

// RecordUpdate carries the user-editable fields of a record. Nil fields are
// left untouched.
type RecordUpdate struct {
	Tags     *[]string `json:"tags,omitempty"`
	Category *string   `json:"category,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
	Favorite *bool     `json:"favorite,omitempty"`
}

// SearchOptions narrows and orders a search.
type SearchOptions struct {
	Platform     string
	Tags         []string
	StartTime    time.Time
	EndTime      time.Time
	FavoriteOnly bool
	SortBy       SortOrder
	Limit        int
}

type SortOrder string

const (
	SortByRelevance SortOrder = "relevance"
	SortByTime      SortOrder = "time"
)

// SearchResult pairs a record with its relevance score and the distinct
// literal query matches found in each field.
type SearchResult struct {
	Record     ConversationRecord `json:"record"`
	Score      int                `json:"score"`
	Highlights Highlights         `json:"highlights"`
}

type Highlights struct {
	Question []string `json:"question"`
	Answer   []string `json:"answer"`
}

// SubmitResult is the structured outcome of submitting a record. A capacity
// rejection or a duplicate is an expected outcome, not an error.
type SubmitResult struct {
	Accepted  bool             `json:"accepted"`
	Duplicate bool             `json:"duplicate"`
	Warning   *CapacityWarning `json:"warning,omitempty"`
}

// CapacityWarning reports storage pressure to the submitting caller.
type CapacityWarning struct {
	Category   CapacityBand `json:"category"`
	Message    string       `json:"message"`
	UsageRatio float64      `json:"usageRatio"`
}

type CapacityBand string

const (
	CapacityWarn   CapacityBand = "warning"
	CapacitySevere CapacityBand = "severe"
	CapacityFull   CapacityBand = "full"
)

// Statistics summarizes the stored record set.
type Statistics struct {
	TotalCount int            `json:"totalCount"`
	TotalSize  int64          `json:"totalSize"`
	Platforms  map[string]int `json:"platforms"`
	OldestAt   time.Time      `json:"oldestAt"`
	NewestAt   time.Time      `json:"newestAt"`
}

// CapacityStatus is the store's view of its size budget.
type CapacityStatus struct {
	CanSave     bool             `json:"canSave"`
	CurrentSize int64            `json:"currentSize"`
	MaxSize     int64            `json:"maxSize"`
	UsageRatio  float64          `json:"usageRatio"`
	Warning     *CapacityWarning `json:"warning,omitempty"`
}
