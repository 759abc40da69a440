package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/convkeep/internal/adapter"
	"github.com/sandevgo/convkeep/internal/core"
)

const testPageURL = "https://gemini.google.com/app/test"

// fakeSession scripts a page for the loop: mutable HTML, injectable
// mutation batches and visibility flips.
type fakeSession struct {
	pageURL string
	ready   chan struct{}
	closed  chan struct{}
	mutCh   chan MutationBatch
	visCh   chan bool

	mu      sync.Mutex
	html    string
	visible bool
	target  string

	observed    chan struct{}
	observeOnce sync.Once
	closeOnce   sync.Once
}

func newFakeSession(html string) *fakeSession {
	ready := make(chan struct{})
	close(ready)
	return &fakeSession{
		pageURL:  testPageURL,
		ready:    ready,
		closed:   make(chan struct{}),
		mutCh:    make(chan MutationBatch, 64),
		visCh:    make(chan bool, 8),
		html:     html,
		visible:  true,
		observed: make(chan struct{}),
	}
}

func (s *fakeSession) URL() string            { return s.pageURL }
func (s *fakeSession) Ready() <-chan struct{} { return s.ready }

func (s *fakeSession) Page(context.Context) (*adapter.Page, error) {
	s.mu.Lock()
	html := s.html
	s.mu.Unlock()
	return adapter.ParsePage(html, s.pageURL)
}

func (s *fakeSession) Observe(_ context.Context, target string) (<-chan MutationBatch, error) {
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
	s.observeOnce.Do(func() { close(s.observed) })
	return s.mutCh, nil
}

func (s *fakeSession) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *fakeSession) Visibility() <-chan bool { return s.visCh }
func (s *fakeSession) Closed() <-chan struct{} { return s.closed }
func (s *fakeSession) setHTML(html string)     { s.mu.Lock(); s.html = html; s.mu.Unlock() }
func (s *fakeSession) end()                    { s.closeOnce.Do(func() { close(s.closed) }) }

func (s *fakeSession) observedTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *fakeSession) setVisible(v bool) {
	s.mu.Lock()
	s.visible = v
	s.mu.Unlock()
	s.visCh <- v
}

type capturedSubmit struct {
	id string
	at time.Time
}

type fakeStore struct {
	core.ConversationStore

	mu      sync.Mutex
	stored  map[string]bool
	submits []capturedSubmit
	err     error
}

func newFakeStore(existing ...string) *fakeStore {
	stored := make(map[string]bool)
	for _, id := range existing {
		stored[id] = true
	}
	return &fakeStore{stored: stored}
}

func (s *fakeStore) Submit(_ context.Context, rec core.ConversationRecord) (core.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return core.SubmitResult{}, s.err
	}
	if s.stored[rec.ID] {
		return core.SubmitResult{Duplicate: true}, nil
	}
	s.stored[rec.ID] = true
	s.submits = append(s.submits, capturedSubmit{id: rec.ID, at: time.Now()})
	return core.SubmitResult{Accepted: true}, nil
}

func (s *fakeStore) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var existing []string
	for _, id := range ids {
		if s.stored[id] {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (s *fakeStore) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submits)
}

func (s *fakeStore) lastSubmit() capturedSubmit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits[len(s.submits)-1]
}

type allowAll struct{}

func (allowAll) IsTracked(context.Context, string) (bool, error) { return true, nil }

type allowNone struct{}

func (allowNone) IsTracked(context.Context, string) (bool, error) { return false, nil }

func geminiHistoryHTML(turns ...[2]string) string {
	body := `<div id="chat-history">`
	for _, turn := range turns {
		body += fmt.Sprintf(`<div class="conversation-container">
			<div class="user-query-container">%s</div>
			<div class="response-container-content">%s</div>
		</div>`, turn[0], turn[1])
	}
	return "<html><body>" + body + `</div></body></html>`
}

func testConfig() Config {
	return Config{
		SettleDelay:      10 * time.Millisecond,
		DebounceInterval: 200 * time.Millisecond,
		ScanThrottle:     300 * time.Millisecond,
		InterRecordDelay: 5 * time.Millisecond,
	}
}

func startLoop(cfg Config, session PageSession, store core.ConversationStore, allow core.DomainAllowlist) <-chan error {
	loop := NewLoop(cfg, session, store, allow, adapter.NewRegistry())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(context.Background()) }()
	return errc
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func relevantMutation() MutationBatch {
	return MutationBatch{Hints: []NodeHint{{Tag: "div", Classes: []string{"conversation-container"}}}}
}

var turnA = [2]string{"how do goroutines work", "they are lightweight threads multiplexed onto OS threads"}
var turnB = [2]string{"what does select do", "it waits on multiple channel operations and picks a ready one"}

func TestLoop_InitialScanSubmitsNewRecords(t *testing.T) {
	session := newFakeSession(geminiHistoryHTML(turnA, turnB))
	store := newFakeStore()
	errc := startLoop(testConfig(), session, store, allowAll{})

	waitFor(t, 2*time.Second, "initial scan submissions", func() bool {
		return store.submitCount() == 2
	})

	session.end()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if got := session.observedTarget(); got != "#chat-history" {
		t.Errorf("observe target = %q, want #chat-history", got)
	}
}

func TestLoop_InitialScanReconcilesAgainstStore(t *testing.T) {
	session := newFakeSession(geminiHistoryHTML(turnA, turnB))

	// Seed the store with turnA's id by running a throwaway extraction.
	page, err := session.Page(context.Background())
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	records := adapter.NewGemini().ExtractConversations(page)
	if len(records) != 2 {
		t.Fatalf("fixture extracted %d records, want 2", len(records))
	}
	store := newFakeStore(records[0].ID)

	errc := startLoop(testConfig(), session, store, allowAll{})
	waitFor(t, 2*time.Second, "submission of the unseen record", func() bool {
		return store.submitCount() == 1
	})
	if got := store.lastSubmit().id; got != records[1].ID {
		t.Errorf("submitted id = %q, want %q", got, records[1].ID)
	}

	session.end()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestLoop_BurstCollapsesToOneScan(t *testing.T) {
	cfg := testConfig()
	session := newFakeSession(geminiHistoryHTML(turnA))
	store := newFakeStore()
	errc := startLoop(cfg, session, store, allowAll{})

	waitFor(t, 2*time.Second, "initial scan", func() bool { return store.submitCount() == 1 })
	<-session.observed

	// Let the throttle window after the initial scan pass, then grow the
	// transcript and fire a burst of mutation events.
	time.Sleep(cfg.ScanThrottle + 20*time.Millisecond)
	session.setHTML(geminiHistoryHTML(turnA, turnB))

	for i := 0; i < 20; i++ {
		session.mutCh <- relevantMutation()
		time.Sleep(10 * time.Millisecond)
	}
	lastEvent := time.Now()

	waitFor(t, 2*time.Second, "incremental scan submission", func() bool {
		return store.submitCount() == 2
	})
	if gap := store.lastSubmit().at.Sub(lastEvent); gap < cfg.DebounceInterval {
		t.Errorf("scan fired %v after last event, want at least %v", gap, cfg.DebounceInterval)
	}

	// No further scans without further mutations.
	time.Sleep(cfg.DebounceInterval + 100*time.Millisecond)
	if store.submitCount() != 2 {
		t.Errorf("submit count = %d after quiet period, want 2", store.submitCount())
	}

	session.end()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestLoop_IrrelevantMutationsIgnored(t *testing.T) {
	cfg := testConfig()
	session := newFakeSession(geminiHistoryHTML(turnA))
	store := newFakeStore()
	errc := startLoop(cfg, session, store, allowAll{})

	waitFor(t, 2*time.Second, "initial scan", func() bool { return store.submitCount() == 1 })
	<-session.observed

	time.Sleep(cfg.ScanThrottle + 20*time.Millisecond)
	session.setHTML(geminiHistoryHTML(turnA, turnB))
	session.mutCh <- MutationBatch{Hints: []NodeHint{{Tag: "span", Classes: []string{"hover-state", "cursor-blink"}}}}

	time.Sleep(cfg.DebounceInterval + 100*time.Millisecond)
	if store.submitCount() != 1 {
		t.Errorf("submit count = %d, want 1 (irrelevant mutation must not trigger a scan)", store.submitCount())
	}

	session.end()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestLoop_HiddenTabCancelsPendingScan(t *testing.T) {
	cfg := testConfig()
	cfg.ScanThrottle = 50 * time.Millisecond
	session := newFakeSession(geminiHistoryHTML(turnA))
	store := newFakeStore()
	errc := startLoop(cfg, session, store, allowAll{})

	waitFor(t, 2*time.Second, "initial scan", func() bool { return store.submitCount() == 1 })
	<-session.observed

	time.Sleep(cfg.ScanThrottle + 20*time.Millisecond)
	session.setHTML(geminiHistoryHTML(turnA, turnB))
	session.mutCh <- relevantMutation()
	session.setVisible(false)

	// The pending debounce was cancelled outright, and scans are skipped
	// while hidden.
	time.Sleep(cfg.DebounceInterval + 100*time.Millisecond)
	if store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1 (hidden tab must not scan)", store.submitCount())
	}

	// Back to visible: the next organic mutation resumes capture.
	session.setVisible(true)
	session.mutCh <- relevantMutation()
	waitFor(t, 2*time.Second, "scan after returning to visible", func() bool {
		return store.submitCount() == 2
	})

	session.end()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestLoop_UntrackedHostname(t *testing.T) {
	session := newFakeSession(geminiHistoryHTML(turnA))
	store := newFakeStore()
	errc := startLoop(testConfig(), session, store, allowNone{})

	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if store.submitCount() != 0 {
		t.Errorf("submit count = %d, want 0 for untracked hostname", store.submitCount())
	}
}

func TestLoop_StoreSeveredIsTerminal(t *testing.T) {
	session := newFakeSession(geminiHistoryHTML(turnA))
	store := newFakeStore()
	store.err = core.ErrStoreClosed
	errc := startLoop(testConfig(), session, store, allowAll{})

	select {
	case err := <-errc:
		if !errors.Is(err, core.ErrStoreClosed) {
			t.Fatalf("Run returned %v, want ErrStoreClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after store severed")
	}
}
