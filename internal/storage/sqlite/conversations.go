package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/convkeep/internal/core"
)

// DefaultMaxSize is the storage budget when none is configured: 100 MB of
// serialized record data.
const DefaultMaxSize int64 = 100 * 1024 * 1024

// Capacity bands as fractions of the configured maximum.
const (
	capacityWarnRatio   = 0.80
	capacitySevereRatio = 0.95
)

// existsChunkSize keeps batched id lookups under SQLite's bind-variable cap.
const existsChunkSize = 500

// ConversationRepo persists conversation records and enforces the storage
// size budget. It implements core.ConversationStore.
type ConversationRepo struct {
	db      *sql.DB
	maxSize int64
}

func NewConversationRepo(db *sql.DB, maxSize int64) *ConversationRepo {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &ConversationRepo{db: db, maxSize: maxSize}
}

// Submit inserts a record unless its id is already stored or the size budget
// is exhausted. A duplicate or a capacity rejection is reported in the
// result, not as an error, and neither touches the stored set.
func (r *ConversationRepo) Submit(ctx context.Context, rec core.ConversationRecord) (core.SubmitResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.SubmitResult{}, storeErr(err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations WHERE id = ?`, rec.ID).Scan(&exists)
	if err != nil {
		return core.SubmitResult{}, fmt.Errorf("duplicate check: %w", storeErr(err))
	}
	if exists > 0 {
		return core.SubmitResult{Duplicate: true}, nil
	}

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM conversations`).Scan(&current)
	if err != nil {
		return core.SubmitResult{}, fmt.Errorf("size check: %w", storeErr(err))
	}

	usage := float64(current) / float64(r.maxSize)
	warning := warningFor(usage)
	if warning != nil && warning.Category == core.CapacityFull {
		return core.SubmitResult{Warning: warning}, nil
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	tags, size, err := encodeRecord(rec)
	if err != nil {
		return core.SubmitResult{}, storeErr(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations
			(id, timestamp, platform, domain, question, answer,
			 question_html, answer_html, title, page_url,
			 tags, category, notes, favorite, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixMilli(), rec.Platform, rec.Domain, rec.Question, rec.Answer,
		rec.QuestionHTML, rec.AnswerHTML, rec.Title, rec.PageURL,
		tags, rec.Category, rec.Notes, rec.Favorite, size,
	)
	if err != nil {
		return core.SubmitResult{}, fmt.Errorf("failed to insert conversation: %w", storeErr(err))
	}

	if err := tx.Commit(); err != nil {
		return core.SubmitResult{}, storeErr(err)
	}
	return core.SubmitResult{Accepted: true, Warning: warning}, nil
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (core.ConversationRecord, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` FROM conversations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConversationRecord{}, core.ErrNotFound
	}
	return rec, storeErr(err)
}

func (r *ConversationRepo) GetAll(ctx context.Context) ([]core.ConversationRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` FROM conversations ORDER BY timestamp DESC`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var records []core.ConversationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		records = append(records, rec)
	}
	return records, storeErr(rows.Err())
}

// Update applies the non-nil fields of upd and recomputes the stored size.
func (r *ConversationRepo) Update(ctx context.Context, id string, upd core.RecordUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectColumns+` FROM conversations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return storeErr(err)
	}

	if upd.Tags != nil {
		rec.Tags = *upd.Tags
	}
	if upd.Category != nil {
		rec.Category = *upd.Category
	}
	if upd.Notes != nil {
		rec.Notes = *upd.Notes
	}
	if upd.Favorite != nil {
		rec.Favorite = *upd.Favorite
	}

	tags, size, err := encodeRecord(rec)
	if err != nil {
		return storeErr(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET tags = ?, category = ?, notes = ?, favorite = ?, size = ?
		WHERE id = ?`,
		tags, rec.Category, rec.Notes, rec.Favorite, size, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", storeErr(err))
	}
	return storeErr(tx.Commit())
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ExistingIDs resolves which candidate ids are already stored, batched so a
// whole scan costs a handful of queries instead of one per record.
func (r *ConversationRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	var existing []string
	for start := 0; start < len(ids); start += existsChunkSize {
		end := start + existsChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		rows, err := r.db.QueryContext(ctx,
			`SELECT id FROM conversations WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("existence check: %w", storeErr(err))
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, storeErr(err)
			}
			existing = append(existing, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, storeErr(err)
		}
		rows.Close()
	}
	return existing, nil
}

func (r *ConversationRepo) Platforms(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT platform FROM conversations ORDER BY platform`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var platforms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, storeErr(err)
		}
		platforms = append(platforms, p)
	}
	return platforms, storeErr(rows.Err())
}

// Tags returns the union of all tag sets, sorted.
func (r *ConversationRepo) Tags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tags FROM conversations WHERE tags != '[]'`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, storeErr(err)
		}
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		for _, tag := range tags {
			set[tag] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *ConversationRepo) Statistics(ctx context.Context) (core.Statistics, error) {
	stats := core.Statistics{Platforms: make(map[string]int)}

	var oldest, newest sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1), COALESCE(SUM(size), 0), MIN(timestamp), MAX(timestamp)
		FROM conversations`,
	).Scan(&stats.TotalCount, &stats.TotalSize, &oldest, &newest)
	if err != nil {
		return core.Statistics{}, storeErr(err)
	}
	if oldest.Valid {
		stats.OldestAt = time.UnixMilli(oldest.Int64)
	}
	if newest.Valid {
		stats.NewestAt = time.UnixMilli(newest.Int64)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT platform, COUNT(1) FROM conversations GROUP BY platform`)
	if err != nil {
		return core.Statistics{}, storeErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return core.Statistics{}, storeErr(err)
		}
		stats.Platforms[platform] = count
	}
	return stats, storeErr(rows.Err())
}

func (r *ConversationRepo) Capacity(ctx context.Context) (core.CapacityStatus, error) {
	var current int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM conversations`).Scan(&current)
	if err != nil {
		return core.CapacityStatus{}, storeErr(err)
	}

	usage := float64(current) / float64(r.maxSize)
	warning := warningFor(usage)
	return core.CapacityStatus{
		CanSave:     warning == nil || warning.Category != core.CapacityFull,
		CurrentSize: current,
		MaxSize:     r.maxSize,
		UsageRatio:  usage,
		Warning:     warning,
	}, nil
}

// storeErr maps a closed *sql.DB to core.ErrStoreClosed so callers can tell a
// severed store from an operation that merely failed. database/sql does not
// export its closed-database sentinel, hence the message check.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%v: %w", err, core.ErrStoreClosed)
	}
	return err
}

func warningFor(usage float64) *core.CapacityWarning {
	switch {
	case usage >= 1.0:
		return &core.CapacityWarning{
			Category:   core.CapacityFull,
			Message:    fmt.Sprintf("storage full (%.0f%% used), delete or export records to continue capturing", usage*100),
			UsageRatio: usage,
		}
	case usage >= capacitySevereRatio:
		return &core.CapacityWarning{
			Category:   core.CapacitySevere,
			Message:    fmt.Sprintf("storage almost full (%.0f%% used)", usage*100),
			UsageRatio: usage,
		}
	case usage >= capacityWarnRatio:
		return &core.CapacityWarning{
			Category:   core.CapacityWarn,
			Message:    fmt.Sprintf("storage filling up (%.0f%% used)", usage*100),
			UsageRatio: usage,
		}
	default:
		return nil
	}
}

const selectColumns = `
	SELECT id, timestamp, platform, domain, question, answer,
	       question_html, answer_html, title, page_url,
	       tags, category, notes, favorite`

// encodeRecord returns the JSON tag column and the record's serialized size,
// which is what the capacity accounting charges against the budget.
func encodeRecord(rec core.ConversationRecord) (tags string, size int64, err error) {
	tagBytes, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode tags: %w", err)
	}
	if rec.Tags == nil {
		tagBytes = []byte("[]")
	}

	recBytes, err := json.Marshal(rec)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode record: %w", err)
	}
	return string(tagBytes), int64(len(recBytes)), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.ConversationRecord, error) {
	var rec core.ConversationRecord
	var ts int64
	var tags string
	err := row.Scan(
		&rec.ID, &ts, &rec.Platform, &rec.Domain, &rec.Question, &rec.Answer,
		&rec.QuestionHTML, &rec.AnswerHTML, &rec.Title, &rec.PageURL,
		&tags, &rec.Category, &rec.Notes, &rec.Favorite,
	)
	if err != nil {
		return core.ConversationRecord{}, err
	}
	rec.Timestamp = time.UnixMilli(ts)

	if tags != "" && tags != "[]" {
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return core.ConversationRecord{}, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return rec, nil
}
