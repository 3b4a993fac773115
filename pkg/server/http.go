// Package server exposes the dashboard over HTTP, WebSocket and gRPC
// health checks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/salahayoub/distdash/pkg/dashboard"
	"github.com/salahayoub/distdash/pkg/logging"
)

const (
	// defaultTriggerTimeout bounds one action started over HTTP.
	defaultTriggerTimeout = 30 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Controller is the part of the dashboard the server exposes.
type Controller interface {
	State() dashboard.State
	Actions() []dashboard.Action
	Subscribe() (<-chan struct{}, func())
	Trigger(ctx context.Context, id string) error
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the control API and the WebSocket feed.
type Server struct {
	ctrl   Controller
	hub    *Hub
	logger *logging.Logger
	mux    *http.ServeMux
}

// New creates a Server for ctrl.
func New(ctrl Controller, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		ctrl:   ctrl,
		hub:    NewHub(ctrl, logger.Named("ws")),
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/state", s.HandleState)
	s.mux.HandleFunc("GET /api/actions", s.HandleActions)
	s.mux.HandleFunc("POST /api/actions/{id}", s.HandleTrigger)
	s.mux.HandleFunc("GET /ws", s.hub.HandleWS)
	return s
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HandleState processes GET /api/state requests.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

// HandleActions processes GET /api/actions requests.
func (s *Server) HandleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Actions())
}

// HandleTrigger processes POST /api/actions/{id} requests.
// It runs the action to completion and returns the resulting state.
// Returns 404 for an unknown action and 502 when the backend call fails.
func (s *Server) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ctx, cancel := context.WithTimeout(r.Context(), defaultTriggerTimeout)
	defer cancel()

	if err := s.ctrl.Trigger(ctx, id); err != nil {
		if errors.Is(err, dashboard.ErrUnknownAction) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		s.logger.Warnf("action %s failed: %v", id, err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.ctrl.State())
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully. The hub broadcasts for as long as the server runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting HTTP server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Infof("HTTP server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
