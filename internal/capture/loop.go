package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sandevgo/convkeep/internal/adapter"
	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/pkg/log"
	"github.com/sandevgo/convkeep/pkg/retry"
)

// Config holds the capture loop's timing knobs.
type Config struct {
	// SettleDelay is how long the initial scan waits after document load so
	// client-side rendering can finish.
	SettleDelay time.Duration

	// DebounceInterval is the quiet period required after the last relevant
	// mutation before an incremental scan runs.
	DebounceInterval time.Duration

	// ScanThrottle is the minimum gap since the last completed scan;
	// mutation batches arriving inside it are dropped, bounding staleness
	// that debounce alone would not (a steady mutation stream could
	// postpone the debounce timer forever).
	ScanThrottle time.Duration

	// InterRecordDelay spaces out sequential record submissions.
	InterRecordDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		SettleDelay:      time.Second,
		DebounceInterval: 2 * time.Second,
		ScanThrottle:     3 * time.Second,
		InterRecordDelay: 100 * time.Millisecond,
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.SettleDelay <= 0 {
		c.SettleDelay = def.SettleDelay
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = def.DebounceInterval
	}
	if c.ScanThrottle <= 0 {
		c.ScanThrottle = def.ScanThrottle
	}
	if c.InterRecordDelay <= 0 {
		c.InterRecordDelay = def.InterRecordDelay
	}
}

// errSessionEnded signals a clean stop: the page went away mid-operation.
var errSessionEnded = errors.New("page session ended")

// Loop drives capture for one page session: an initial reconciling scan,
// then mutation-triggered incremental scans until the session ends or the
// record store becomes unreachable.
type Loop struct {
	cfg      Config
	session  PageSession
	store    core.ConversationStore
	allow    core.DomainAllowlist
	adapters *adapter.Registry

	known    map[string]struct{}
	scanning bool
	lastScan time.Time
	retrier  *retry.Retrier
}

func NewLoop(cfg Config, session PageSession, store core.ConversationStore, allow core.DomainAllowlist, adapters *adapter.Registry) *Loop {
	cfg.normalize()
	return &Loop{
		cfg:      cfg,
		session:  session,
		store:    store,
		allow:    allow,
		adapters: adapters,
		known:    make(map[string]struct{}),
		// Short budget: the store shares its SQLite file with one-shot CLI
		// commands, so a locked write clears quickly or not at all.
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2,
			InitialDelay:  150 * time.Millisecond,
			MaxDelay:      time.Second,
			Jitter:        50 * time.Millisecond,
		}),
	}
}

// Run blocks until the session ends, ctx is cancelled, or the store is
// severed. A page that is not tracked or has no matching adapter returns nil
// immediately.
func (l *Loop) Run(ctx context.Context) error {
	logger := log.FromCtx(ctx).With().Str("page", l.session.URL()).Logger()
	ctx = logger.WithContext(ctx)

	u, err := url.Parse(l.session.URL())
	if err != nil {
		return fmt.Errorf("parse page url: %w", err)
	}
	tracked, err := l.allow.IsTracked(ctx, u.Hostname())
	if err != nil {
		return fmt.Errorf("allowlist check: %w", err)
	}
	if !tracked {
		logger.Debug().Msg("hostname not tracked, capture disabled")
		return nil
	}

	select {
	case <-l.session.Ready():
	case <-l.session.Closed():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	page, err := l.session.Page(ctx)
	if err != nil {
		return fmt.Errorf("initial page snapshot: %w", err)
	}
	ad := l.adapters.Match(page)
	if ad == nil {
		logger.Debug().Msg("no adapter matched page")
		return nil
	}
	logger.Info().Str("platform", ad.Name()).Msg("capture started")

	if err := l.wait(ctx, l.cfg.SettleDelay); err != nil {
		return stripSessionEnded(err)
	}

	if err := l.initialScan(ctx, ad); err != nil {
		return l.stop(ctx, err)
	}

	mutations, err := l.session.Observe(ctx, ad.ObserveTarget())
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}

	return l.stop(ctx, l.observe(ctx, ad, mutations))
}

// stop maps terminal conditions to the loop's exit value. A severed store is
// logged once and surfaced; a closed session is a clean stop.
func (l *Loop) stop(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrStoreClosed) {
		log.FromCtx(ctx).Warn().Msg("record store severed, capture stopped for this page")
		return err
	}
	return stripSessionEnded(err)
}

func stripSessionEnded(err error) error {
	if errors.Is(err, errSessionEnded) {
		return nil
	}
	return err
}

// observe is the Observing state: filter mutation batches, debounce, scan.
func (l *Loop) observe(ctx context.Context, ad adapter.Adapter, mutations <-chan MutationBatch) error {
	logger := log.FromCtx(ctx)
	keywords := ad.MutationKeywords()
	visibility := l.session.Visibility()

	var debounce *time.Timer
	var debounceC <-chan time.Time
	stopDebounce := func() {
		if debounce != nil {
			debounce.Stop()
			debounce, debounceC = nil, nil
		}
	}
	defer stopDebounce()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-l.session.Closed():
			return nil

		case visible, ok := <-visibility:
			if !ok {
				visibility = nil
				continue
			}
			// A hidden tab cancels any pending scan outright; capture
			// resumes on the next organic mutation after return.
			if !visible {
				stopDebounce()
			}

		case batch, ok := <-mutations:
			if !ok {
				return nil
			}
			if !relevantBatch(keywords, batch) {
				continue
			}
			if time.Since(l.lastScan) < l.cfg.ScanThrottle {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(l.cfg.DebounceInterval)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(l.cfg.DebounceInterval)
			}

		case <-debounceC:
			debounce, debounceC = nil, nil
			if err := l.incrementalScan(ctx, ad); err != nil {
				if errors.Is(err, core.ErrStoreClosed) || errors.Is(err, errSessionEnded) {
					return err
				}
				logger.Error().Err(err).Msg("incremental scan failed")
			}
		}
	}
}

// initialScan reconciles against stored ground truth: one batched existence
// query seeds the known-set, then anything left is submitted. Zero extracted
// records still complete the scan.
func (l *Loop) initialScan(ctx context.Context, ad adapter.Adapter) error {
	defer func() { l.lastScan = time.Now() }()

	page, err := l.session.Page(ctx)
	if err != nil {
		return err
	}
	records := ad.ExtractConversations(page)
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	existing, err := l.store.ExistingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("existence check: %w", err)
	}
	for _, id := range existing {
		l.known[id] = struct{}{}
	}

	return l.submitNew(ctx, records)
}

// incrementalScan re-extracts and submits anything not yet known. Guarded
// against reentry (a trigger during a scan is dropped, not queued) and
// skipped entirely for hidden tabs.
func (l *Loop) incrementalScan(ctx context.Context, ad adapter.Adapter) error {
	if l.scanning {
		return nil
	}
	if !l.session.Visible() {
		return nil
	}
	l.scanning = true
	defer func() {
		l.scanning = false
		l.lastScan = time.Now()
	}()

	page, err := l.session.Page(ctx)
	if err != nil {
		return err
	}
	return l.submitNew(ctx, ad.ExtractConversations(page))
}

// submitNew sends unknown records sequentially with the inter-record delay.
// Each id is marked known before its submission goes out so the same record
// can never be dispatched twice.
func (l *Loop) submitNew(ctx context.Context, records []core.ConversationRecord) error {
	logger := log.FromCtx(ctx)

	first := true
	for _, rec := range records {
		if _, ok := l.known[rec.ID]; ok {
			continue
		}
		l.known[rec.ID] = struct{}{}

		if !first {
			if err := l.wait(ctx, l.cfg.InterRecordDelay); err != nil {
				return err
			}
		}
		first = false

		res, err := l.submit(ctx, rec)
		if err != nil {
			if errors.Is(err, core.ErrStoreClosed) {
				return err
			}
			logger.Error().Err(err).Str("id", rec.ID).Msg("submit failed")
			continue
		}

		switch {
		case res.Duplicate:
			logger.Debug().Str("id", rec.ID).Msg("already stored")
		case !res.Accepted:
			// Capacity rejection: never retried automatically, the id stays
			// in the known-set.
			logger.Warn().Str("id", rec.ID).Msg("record rejected, storage full")
		default:
			logger.Info().Str("id", rec.ID).Str("platform", rec.Platform).Msg("conversation captured")
			if res.Warning != nil {
				logger.Warn().Float64("usage", res.Warning.UsageRatio).Msg(res.Warning.Message)
			}
		}
	}
	return nil
}

// submit retries transient store failures with backoff. A severed store is
// terminal and never retried.
func (l *Loop) submit(ctx context.Context, rec core.ConversationRecord) (core.SubmitResult, error) {
	var res core.SubmitResult
	var terminal error
	err := l.retrier.Do(ctx, func() error {
		var err error
		res, err = l.store.Submit(ctx, rec)
		if errors.Is(err, core.ErrStoreClosed) {
			terminal = err
			return nil
		}
		return err
	})
	if terminal != nil {
		return res, terminal
	}
	return res, err
}

func (l *Loop) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-l.session.Closed():
		return errSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// relevantBatch reports whether any hint, or a shallow descendant of one,
// carries a platform keyword in its id or classes.
func relevantBatch(keywords []string, batch MutationBatch) bool {
	for _, hint := range batch.Hints {
		if hintMatches(hint, keywords, 0) {
			return true
		}
	}
	return false
}

func hintMatches(h NodeHint, keywords []string, depth int) bool {
	if depth > 2 {
		return false
	}
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(h.ID, kw) {
			return true
		}
		for _, class := range h.Classes {
			if strings.Contains(class, kw) {
				return true
			}
		}
	}
	for _, d := range h.Descendants {
		if hintMatches(d, keywords, depth+1) {
			return true
		}
	}
	return false
}
