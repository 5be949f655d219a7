// Package server exposes the protection pipeline over HTTP.
//
// Endpoints:
//
//	POST /v1/protect        {"text": "..."}            -> ProtectionResult
//	POST /v1/protect/batch  {"texts": ["...", ...]}    -> []ProtectionResult
//	POST /v1/detect         {"text": "..."}            -> []Entity
//	GET  /healthz                                      -> {"status":"ok"}
//
// Every successful protect call is persisted to the audit store when one is
// configured. Failures to persist are logged, never surfaced to the caller.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dativo-io/guardian/internal/audit"
	"github.com/dativo-io/guardian/pii"
)

const defaultTimeout = 60 * time.Second

// Server holds the dependencies for the HTTP API.
type Server struct {
	router     *chi.Mux
	guardian   *pii.Guardian
	auditStore *audit.Store
	limiter    *RateLimiter
	startTime  time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAuditStore enables audit persistence for protect calls.
func WithAuditStore(store *audit.Store) Option {
	return func(s *Server) { s.auditStore = store }
}

// WithRateLimiter sets the request rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// NewServer builds a Server around a shared Guardian instance.
func NewServer(guardian *pii.Guardian, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		guardian:  guardian,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultTimeout))
	if s.limiter != nil {
		r.Use(s.rateLimitMiddleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/protect", s.handleProtect)
	r.Post("/v1/protect/batch", s.handleProtectBatch)
	r.Post("/v1/detect", s.handleDetect)

	return r
}

// rateLimitMiddleware rejects requests over the per-client budget with 429.
// Clients are keyed by remote IP (RealIP middleware runs first).
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
