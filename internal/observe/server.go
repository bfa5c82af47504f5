package observe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// StatusFunc returns the current session snapshot for /status.
type StatusFunc func() any

// Server exposes /healthz, /status, /metrics and /events.
type Server struct {
	addr   string
	router *mux.Router
	hub    *Hub
	logger *slog.Logger
}

// NewServer wires the status routes. metrics and hub may be nil.
func NewServer(addr string, status StatusFunc, metrics http.Handler, hub *Hub, logger *slog.Logger) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			writeJSON(w, http.StatusOK, map[string]string{"state": "idle"})
			return
		}
		writeJSON(w, http.StatusOK, status())
	}).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	if hub != nil {
		router.Handle("/events", hub)
	}

	return &Server{addr: addr, router: router, hub: hub, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully. ready, when non-nil, receives the bound address.
func (s *Server) Run(ctx context.Context, ready func(addr string)) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen status server %q: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	if s.logger != nil {
		s.logger.Info("status server listening", "addr", listener.Addr().String())
	}
	if ready != nil {
		ready(listener.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve status server: %w", err)
	case <-ctx.Done():
	}

	// Shutdown does not track hijacked feed connections.
	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
