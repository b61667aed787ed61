// Package gateway is the transport layer: it owns the HTTP server, the
// WebSocket upgrade path, and the REST API, and feeds client frames
// into the hub.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wanjiru/triagedesk/internal/config"
	"github.com/wanjiru/triagedesk/internal/hooks"
	"github.com/wanjiru/triagedesk/internal/hub"
	"github.com/wanjiru/triagedesk/internal/logging"
	"github.com/wanjiru/triagedesk/internal/store"
	"github.com/wanjiru/triagedesk/internal/version"
)

const maxFrameBytes = 1 << 20 // 1MB

// Server is the triagedesk HTTP + WebSocket server.
type Server struct {
	cfg   config.Config
	log   *logging.Logger
	hub   *hub.Hub
	store *store.Store
	hooks *hooks.Manager

	// baseCtx outlives individual requests, so a mutation dispatched
	// just before a peer disconnects still runs to completion instead
	// of being cancelled with the request context.
	baseCtx context.Context

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a gateway server.
func New(cfg config.Config, st *store.Store, h *hub.Hub, hookMgr *hooks.Manager, log *logging.Logger) *Server {
	allowedOrigins := cfg.Server.AllowedOrigins
	return &Server{
		cfg:     cfg,
		log:     log.Sub("gateway"),
		hub:     h,
		store:   st,
		hooks:   hookMgr,
		baseCtx: context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(allowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket
// Origin headers. If no origins are configured, only same-origin (no
// Origin header) or non-browser clients are allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)
	s.baseCtx = context.WithoutCancel(ctx)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Server.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Str("version", version.Version).
		Msg("server starting")

	s.hooks.Emit(ctx, hooks.EventServerStart, map[string]any{
		"addr": ln.Addr().String(),
	})

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down server")
		s.hooks.Emit(context.Background(), hooks.EventServerStop, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.Shutdown()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleWebSocket upgrades HTTP to WebSocket and runs the read loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	ws.SetReadLimit(maxFrameBytes)

	client := NewClient(ws, s.log.Sub("ws"))
	client.Start()

	s.log.Debug().Str("conn", client.ID()).Str("remote", r.RemoteAddr).Msg("websocket connected")

	s.hub.Connect(client)
	defer func() {
		s.hub.Disconnect(s.baseCtx, client.ID())
		client.Close()
	}()

	s.readLoop(ws, client)
}

// readLoop consumes frames until the peer goes away. Each event is
// dispatched on its own goroutine against the server's base context,
// not the request's: a message sent right before the peer disconnects
// must still be recorded and broadcast. The hub's locks restore
// ordering where it matters.
func (s *Server) readLoop(ws *websocket.Conn, client *Client) {
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("conn", client.ID()).Msg("read error")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := DecodeFrame(msg)
		if err != nil {
			s.log.Warn().Err(err).Str("conn", client.ID()).Msg("malformed frame")
			client.Send(hub.EventError, map[string]string{"message": "Malformed frame"})
			continue
		}

		go s.hub.Dispatch(s.baseCtx, client.ID(), frame.Event, frame.Data)
	}
}
