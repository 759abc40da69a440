package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandevgo/convkeep/internal/adapter"
	"github.com/sandevgo/convkeep/internal/capture"
	"github.com/sandevgo/convkeep/internal/core"
)

type fakeStore struct {
	core.ConversationStore
	mu     sync.Mutex
	stored map[string]bool
	count  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: make(map[string]bool)}
}

func (s *fakeStore) Submit(_ context.Context, rec core.ConversationRecord) (core.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored[rec.ID] {
		return core.SubmitResult{Duplicate: true}, nil
	}
	s.stored[rec.ID] = true
	s.count++
	return core.SubmitResult{Accepted: true}, nil
}

func (s *fakeStore) ExistingIDs(context.Context, []string) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type allowAll struct{}

func (allowAll) IsTracked(context.Context, string) (bool, error) { return true, nil }

func geminiPageHTML(turns ...[2]string) string {
	body := `<div id="chat-history">`
	for _, turn := range turns {
		body += fmt.Sprintf(`<div class="conversation-container">
			<div class="user-query-container">%s</div>
			<div class="response-container-content">%s</div>
		</div>`, turn[0], turn[1])
	}
	return "<html><body>" + body + `</div></body></html>`
}

var (
	turnA = [2]string{"how do goroutines work", "they are lightweight threads multiplexed onto OS threads"}
	turnB = [2]string{"what does select do", "it waits on multiple channel operations and picks a ready one"}
)

// shim is a scripted stand-in for the browser side of the bridge.
type shim struct {
	conn *websocket.Conn

	mu       sync.Mutex
	html     string
	observed chan string
	done     chan struct{}
}

func dialShim(t *testing.T, wsURL, html string) *shim {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sh := &shim{
		conn:     conn,
		html:     html,
		observed: make(chan string, 1),
		done:     make(chan struct{}),
	}
	t.Cleanup(func() { conn.Close() })
	go sh.pump(t)
	return sh
}

// pump answers snapshot requests with the current html and records the
// observe target.
func (sh *shim) pump(t *testing.T) {
	defer close(sh.done)
	for {
		var msg serverMessage
		if err := sh.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case msgSnapshotRequest:
			sh.mu.Lock()
			html := sh.html
			sh.mu.Unlock()
			sh.write(clientMessage{Type: msgSnapshot, RequestID: msg.RequestID, HTML: html})
		case msgObserve:
			select {
			case sh.observed <- msg.Target:
			default:
			}
		}
	}
}

func (sh *shim) write(msg clientMessage) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.conn.WriteJSON(msg)
}

func (sh *shim) setHTML(html string) {
	sh.mu.Lock()
	sh.html = html
	sh.mu.Unlock()
}

func newBridgeServer(t *testing.T, store core.ConversationStore) string {
	t.Helper()
	cfg := capture.Config{
		SettleDelay:      10 * time.Millisecond,
		DebounceInterval: 50 * time.Millisecond,
		ScanThrottle:     50 * time.Millisecond,
		InterRecordDelay: time.Millisecond,
	}
	srv := NewServer("127.0.0.1:0", cfg, store, allowAll{}, adapter.NewRegistry())

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.handleConn(context.Background(), w, r)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
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

func TestBridge_CaptureFlow(t *testing.T) {
	store := newFakeStore()
	wsURL := newBridgeServer(t, store)
	sh := dialShim(t, wsURL, geminiPageHTML(turnA))

	visible := true
	err := sh.write(clientMessage{
		Type:       msgHello,
		URL:        "https://gemini.google.com/app/test",
		ReadyState: "complete",
		Visible:    &visible,
	})
	if err != nil {
		t.Fatalf("hello: %v", err)
	}

	waitFor(t, 3*time.Second, "initial scan submission", func() bool {
		return store.submitCount() == 1
	})

	select {
	case target := <-sh.observed:
		if target != "#chat-history" {
			t.Errorf("observe target = %q, want #chat-history", target)
		}
	case <-time.After(time.Second):
		t.Fatal("no observe message received")
	}

	// Grow the transcript and report a relevant mutation after the throttle
	// window: one incremental scan should pick up the new turn.
	time.Sleep(80 * time.Millisecond)
	sh.setHTML(geminiPageHTML(turnA, turnB))
	err = sh.write(clientMessage{
		Type:  msgMutations,
		Hints: []nodeHint{{Tag: "div", Classes: []string{"conversation-container"}}},
	})
	if err != nil {
		t.Fatalf("mutations: %v", err)
	}

	waitFor(t, 3*time.Second, "incremental scan submission", func() bool {
		return store.submitCount() == 2
	})

	if err := sh.write(clientMessage{Type: msgBye}); err != nil {
		t.Fatalf("bye: %v", err)
	}
	select {
	case <-sh.done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after bye")
	}
}

func TestBridge_DeferredLoad(t *testing.T) {
	store := newFakeStore()
	wsURL := newBridgeServer(t, store)
	sh := dialShim(t, wsURL, geminiPageHTML(turnA))

	visible := true
	err := sh.write(clientMessage{
		Type:       msgHello,
		URL:        "https://gemini.google.com/app/test",
		ReadyState: "loading",
		Visible:    &visible,
	})
	if err != nil {
		t.Fatalf("hello: %v", err)
	}

	// Still loading: no scan yet.
	time.Sleep(100 * time.Millisecond)
	if store.submitCount() != 0 {
		t.Fatalf("submit count = %d before load completion, want 0", store.submitCount())
	}

	if err := sh.write(clientMessage{Type: msgLoad}); err != nil {
		t.Fatalf("load: %v", err)
	}
	waitFor(t, 3*time.Second, "scan after load", func() bool {
		return store.submitCount() == 1
	})
}
