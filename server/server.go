package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/viperML/bms-lock/bluetooth"
	"github.com/viperML/bms-lock/utils"
)

const shutdownTimeout = 5 * time.Second

// StatusSource provides the current connection status; *bluetooth.Monitor implements it.
type StatusSource interface {
	Status() bluetooth.Status
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	source   StatusSource
	wsHub    *utils.WebSocketHub
	metrics  http.Handler
	log      *zap.Logger
	started  time.Time
	upgrader websocket.Upgrader
	server   *http.Server
}

// NewServer creates a new Server instance. source and metrics may be nil.
func NewServer(source StatusSource, wsHub *utils.WebSocketHub, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		source:  source,
		wsHub:   wsHub,
		metrics: metrics,
		log:     log.Named("http"),
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.methodHandler(http.MethodGet, s.handleStatus))
	mux.HandleFunc("/api/v1/health", s.methodHandler(http.MethodGet, s.handleHealth))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	handler := s.loggingMiddleware(corsMiddleware(mux))

	// WebSocket upgrades bypass the middleware, the recorder does not implement http.Hijacker
	mainMux := http.NewServeMux()
	mainMux.HandleFunc("/ws", s.handleWebSocket)
	mainMux.Handle("/", handler)
	return mainMux
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.wsHub.Close()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
