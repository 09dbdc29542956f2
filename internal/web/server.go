// Package web exposes pricing and training over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/config"
	"github.com/rate-estimator/internal/web/handlers"
	"github.com/rate-estimator/internal/web/middleware"
)

const defaultShutdownTimeout = 30 * time.Second

// Server represents the web server
type Server struct {
	config     config.ServerConfig
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	log        *zap.Logger
}

// NewServer creates a server routing to the pricing service and the
// training queue, with cache drops going to the artifact registry.
func NewServer(cfg config.ServerConfig, pricer handlers.Pricer, jobs handlers.Jobs, cache handlers.Invalidator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{config: cfg, log: log.Named("web")}
	s.setupRoutes(pricer, jobs, cache)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.ReadTimeout * 4,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(pricer handlers.Pricer, jobs handlers.Jobs, cache handlers.Invalidator) {
	s.router = mux.NewRouter()

	estimate := &handlers.EstimateHandler{Pricer: pricer, Log: s.log}
	train := &handlers.TrainingHandler{Jobs: jobs, Log: s.log}
	reload := &handlers.ArtifactsHandler{Cache: cache, Log: s.log}

	// Full paths on the root router so a method mismatch answers 405.
	s.router.HandleFunc("/api/estimate/tiered", estimate.Tiered).Methods("POST")
	s.router.HandleFunc("/api/estimate/regression", estimate.Regression).Methods("POST")
	s.router.HandleFunc("/api/rates/cached", estimate.Cached).Methods("GET")
	s.router.HandleFunc("/api/quote", estimate.Quote).Methods("POST")
	s.router.HandleFunc("/api/price/location", estimate.Location).Methods("POST")

	s.router.HandleFunc("/api/train", train.Submit).Methods("POST")
	s.router.HandleFunc("/api/train/{id}", train.Status).Methods("GET")
	s.router.HandleFunc("/api/train/{id}", train.Cancel).Methods("DELETE")

	s.router.HandleFunc("/api/artifacts/{kind}/reload", reload.Reload).Methods("POST")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Wrapped outside the router so preflights and unmatched paths pass
	// through them too.
	var h http.Handler = s.router
	h = middleware.RequestLogging(s.log)(h)
	h = middleware.CORS()(h)
	s.handler = middleware.Recover(s.log)(h)
}

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
