package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/sandevgo/convkeep/internal/adapter"
	"github.com/sandevgo/convkeep/internal/capture"
)

var errSessionClosed = errors.New("bridge session closed")

// wsSession adapts one shim connection to capture.PageSession. The server's
// read loop feeds it through the handle methods; the capture loop consumes
// it from another goroutine.
type wsSession struct {
	id   string
	send func(serverMessage) error

	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
	closeOnce sync.Once

	mutCh chan capture.MutationBatch
	visCh chan bool

	mu      sync.Mutex
	url     string
	visible bool
	nextReq int64
	pending map[int64]chan string
}

func newSession(id string, send func(serverMessage) error) *wsSession {
	return &wsSession{
		id:      id,
		send:    send,
		ready:   make(chan struct{}),
		closed:  make(chan struct{}),
		mutCh:   make(chan capture.MutationBatch, 64),
		visCh:   make(chan bool, 8),
		visible: true,
		pending: make(map[int64]chan string),
	}
}

func (s *wsSession) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *wsSession) Ready() <-chan struct{}  { return s.ready }
func (s *wsSession) Closed() <-chan struct{} { return s.closed }

func (s *wsSession) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *wsSession) Visibility() <-chan bool { return s.visCh }

// Page requests a DOM snapshot from the shim and parses the reply.
func (s *wsSession) Page(ctx context.Context) (*adapter.Page, error) {
	s.mu.Lock()
	s.nextReq++
	reqID := s.nextReq
	reply := make(chan string, 1)
	s.pending[reqID] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, reqID)
		s.mu.Unlock()
	}()

	if err := s.send(serverMessage{Type: msgSnapshotRequest, RequestID: reqID}); err != nil {
		return nil, err
	}

	select {
	case html := <-reply:
		return adapter.ParsePage(html, s.URL())
	case <-s.closed:
		return nil, errSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *wsSession) Observe(_ context.Context, target string) (<-chan capture.MutationBatch, error) {
	if err := s.send(serverMessage{Type: msgObserve, Target: target}); err != nil {
		return nil, err
	}
	return s.mutCh, nil
}

// handle dispatches one shim message. Returns false for bye, which ends the
// session.
func (s *wsSession) handle(msg clientMessage) bool {
	switch msg.Type {
	case msgHello:
		s.mu.Lock()
		s.url = msg.URL
		if msg.Visible != nil {
			s.visible = *msg.Visible
		}
		s.mu.Unlock()
		if msg.ReadyState == "complete" || msg.ReadyState == "interactive" {
			s.readyOnce.Do(func() { close(s.ready) })
		}

	case msgLoad:
		s.readyOnce.Do(func() { close(s.ready) })

	case msgSnapshot:
		s.mu.Lock()
		if msg.URL != "" {
			s.url = msg.URL
		}
		reply, ok := s.pending[msg.RequestID]
		s.mu.Unlock()
		if ok {
			reply <- msg.HTML
		}

	case msgMutations:
		batch := capture.MutationBatch{Hints: toCaptureHints(msg.Hints)}
		select {
		case s.mutCh <- batch:
		default:
			// Backpressure: the loop debounces anyway, dropping a batch
			// only delays the next scan by one mutation.
		}

	case msgVisibility:
		if msg.Visible == nil {
			break
		}
		s.mu.Lock()
		s.visible = *msg.Visible
		s.mu.Unlock()
		select {
		case s.visCh <- *msg.Visible:
		default:
		}

	case msgBye:
		s.close()
		return false
	}
	return true
}

func (s *wsSession) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}
