// Package http exposes the service over HTTP: the thin resolution endpoint
// plus health, readiness, cache-stats, and metrics routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/place-resolver/internal/cache"
	"github.com/couchcryptid/place-resolver/internal/domain"
	"github.com/couchcryptid/place-resolver/internal/resolve"
)

// ResolverService is the surface the handlers need from the geocoding
// service.
type ResolverService interface {
	Resolve(ctx context.Context, query string, opts resolve.Options) (domain.GeocodeResult, error)
	CacheStats() cache.Stats
	CheckReadiness(ctx context.Context) error
}

// Server exposes the resolution API and ops endpoints.
type Server struct {
	httpServer *http.Server
	service    ResolverService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/resolve, /v1/cache/stats,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, service ResolverService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /v1/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := resolve.Options{
		IncludeAlternatives: q.Get("alternatives") == "true",
	}
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("max_results must be a positive integer"))
			return
		}
		opts.MaxResults = n
	}

	result, err := s.service.Resolve(r.Context(), q.Get("q"), opts)
	if err != nil {
		s.writeResolveError(w, q.Get("q"), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeResolveError(w http.ResponseWriter, query string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter q is required"))
	case errors.Is(err, domain.ErrNoResults):
		writeJSON(w, http.StatusNotFound, errorBody("no matching places found"))
	case errors.Is(err, domain.ErrAllProvidersFailed):
		writeJSON(w, http.StatusBadGateway, errorBody("geocoding providers unavailable"))
	default:
		s.logger.Error("resolve handler error", "query", query, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.CacheStats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
