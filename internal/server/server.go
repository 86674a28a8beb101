// Package server implements the optional monitor endpoint of a run. Long
// DFT optimizations take hours; the monitor exposes the session's progress
// over HTTP without touching the optimization loop. All handlers are
// read-only: the history is append-only, so a concurrent status read sees
// a consistent prefix of the run.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siegfriedkaidisch/ROMIS/internal/config"
	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/session"
)

// ProgressSource yields a point-in-time view of the monitored run.
type ProgressSource interface {
	Progress() session.Progress
}

// Server serves the monitor endpoint for one running session.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	source ProgressSource
	http   *http.Server
}

// New creates a monitor server reading progress from source.
func New(cfg *config.Config, logger *logging.Logger, source ProgressSource) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.WithField("component", "monitor"),
		source: source,
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Monitor.Port),
		Handler:      s.router(),
		ReadTimeout:  cfg.Monitor.ReadTimeout,
		WriteTimeout: cfg.Monitor.WriteTimeout,
		IdleTimeout:  cfg.Monitor.IdleTimeout,
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(errors.RecoveryMiddleware(s.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Progress()); err != nil {
		s.logger.Error("Failed to encode status", map[string]interface{}{"error": err.Error()})
	}
}

// Start serves until Shutdown is called. It returns nil on a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting monitor server", map[string]interface{}{"address": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }
