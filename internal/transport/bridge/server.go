// Package bridge runs the WebSocket endpoint the browser shim connects to.
// Each connection becomes one page session driving one capture loop.
package bridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sandevgo/convkeep/internal/adapter"
	"github.com/sandevgo/convkeep/internal/capture"
	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/pkg/log"
)

const writeTimeout = 10 * time.Second

type Server struct {
	addr       string
	captureCfg capture.Config
	store      core.ConversationStore
	allow      core.DomainAllowlist
	adapters   *adapter.Registry

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func NewServer(
	addr string,
	captureCfg capture.Config,
	store core.ConversationStore,
	allow core.DomainAllowlist,
	adapters *adapter.Registry,
) *Server {
	return &Server{
		addr:       addr,
		captureCfg: captureCfg,
		store:      store,
		allow:      allow,
		adapters:   adapters,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 10,
			// Connections come from chat-site origins; the listener binds
			// loopback, which is the actual access control.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
		s.handleConn(ctx, w, r)
	})

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	log.FromCtx(ctx).Info().Str("addr", s.addr).Msg("capture bridge listening")

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleConn(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := log.FromCtx(ctx).With().Str("session", sessionID).Logger()
	ctx = logger.WithContext(ctx)

	var writeMu sync.Mutex
	send := func(msg serverMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(msg)
	}

	session := newSession(sessionID, send)
	defer session.close()

	logger.Debug().Str("remote", r.RemoteAddr).Msg("shim connected")

	loopDone := make(chan struct{})
	loopStarted := false
	defer func() {
		if loopStarted {
			<-loopDone
		}
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("shim read error")
			}
			return
		}

		// The first hello carries the page URL; only then can capture run.
		if msg.Type == msgHello && !loopStarted {
			loopStarted = true
			session.handle(msg)
			go func() {
				defer close(loopDone)
				loop := capture.NewLoop(s.captureCfg, session, s.store, s.allow, s.adapters)
				if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn().Err(err).Msg("capture loop ended")
				}
			}()
			continue
		}

		if !session.handle(msg) {
			return
		}
	}
}
