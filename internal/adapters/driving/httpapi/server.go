// Package httpapi serves the operator status API used by long-running
// deployments: liveness, Prometheus metrics, sync status, the schedule and
// manual triggers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// ErrMissingSyncService is returned when the sync service is not provided.
var ErrMissingSyncService = errors.New("httpapi: sync service is required")

// Server exposes sync state over HTTP.
type Server struct {
	sync      driving.SyncService
	inbox     driving.InboxService
	scheduler driving.Scheduler
}

// NewServer creates a status API server. inbox may be nil, in which case
// /api/stats answers 503.
func NewServer(sync driving.SyncService, inbox driving.InboxService) (*Server, error) {
	if sync == nil {
		return nil, ErrMissingSyncService
	}
	return &Server{sync: sync, inbox: inbox}, nil
}

// SetScheduler enables /api/schedule.
func (s *Server) SetScheduler(scheduler driving.Scheduler) {
	s.scheduler = scheduler
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Debug("httpapi: write error: %v", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleRuns)
		r.Get("/stats", s.handleStats)
		r.Get("/schedule", s.handleSchedule)
		r.Post("/sync", s.handleSync)
		r.Post("/sync/digests", s.handleSyncDigests)
	})

	return r
}

// Run serves the API on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("httpapi: shutdown: %v", err)
		}
	}()

	logger.Info("httpapi: listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("httpapi: %s %s %d %s [%s]",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond),
			middleware.GetReqID(r.Context()))
	})
}
