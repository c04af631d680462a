// Package http provides HTTP server and handler implementations.
//
// The server exposes the budget lifecycle and health score over a small
// JSON API, plus liveness, readiness and Prometheus endpoints.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	applog "finhealth/internal/log"
	"finhealth/internal/metrics"
	"finhealth/internal/middleware/ratelimit"
	"finhealth/internal/middleware/security"
	"finhealth/internal/middleware/trace"
	"finhealth/internal/services"
	"finhealth/internal/storage"
)

type ServerConfig struct {
	Addr    string
	Budgets *services.BudgetService
	Health  *services.HealthService
	// Events serves the audit trail; nil disables /api/events.
	Events  storage.EventRepository
	Metrics *metrics.Metrics
	Logger  *applog.Logger

	RateLimitPerMinute int
	// Ready backs /readyz; nil always reports ready.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	budgets *services.BudgetService
	health  *services.HealthService
	events  storage.EventRepository
	metrics *metrics.Metrics
	logger  *applog.Logger
	ready   func(ctx context.Context) error
	now     func() time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Budgets == nil {
		return nil, errors.New("budget service is required")
	}
	if cfg.Health == nil {
		return nil, errors.New("health service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		budgets:  cfg.Budgets,
		health:   cfg.Health,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.WithComponent(applog.ComponentHTTP),
		ready:    cfg.Ready,
		now:      cfg.Now,
		detector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /healthz", s.handleHealthz)
	s.handle(mux, "GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", trace.Route(s.metrics.Handler()))
	}

	s.handle(mux, "GET /api/budgets", s.handleListBudgets)
	s.handle(mux, "POST /api/budgets", s.handleCreateBudget)
	s.handle(mux, "GET /api/budgets/suggestions", s.handleListSuggestions)
	s.handle(mux, "GET /api/budgets/summary", s.handleSummary)
	s.handle(mux, "POST /api/budgets/refresh", s.handleRefresh)
	s.handle(mux, "GET /api/budgets/{id}", s.handleGetBudget)
	s.handle(mux, "PUT /api/budgets/{id}", s.handleEditBudget)
	s.handle(mux, "DELETE /api/budgets/{id}", s.handleDeleteBudget)
	s.handle(mux, "POST /api/budgets/{id}/accept", s.handleAcceptSuggestion)
	s.handle(mux, "POST /api/budgets/{id}/dismiss", s.handleDismissSuggestion)

	s.handle(mux, "GET /api/health", s.handleCurrentScore)
	s.handle(mux, "GET /api/health/trend", s.handleTrend)
	s.handle(mux, "GET /api/health/history", s.handleHistory)
	s.handle(mux, "POST /api/health/history", s.handleRecordScore)

	if s.events != nil {
		s.handle(mux, "GET /api/events", s.handleRecentEvents)
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, trace.Route(h))
}

// chain wraps the mux outermost first: tracing, rejection of suspicious
// requests, headers, rate limiting, then the request-scoped logger.
func (s *Server) chain(mux http.Handler) http.Handler {
	var observe trace.Observer
	if s.metrics != nil {
		observe = s.metrics.ObserveHTTP
	}

	h := applog.RequestIDMiddleware(trace.RequestID)(mux)
	h = applog.Middleware(s.logger)(h)
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.onSuspicious)(h)
	return trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, observe).Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func (s *Server) onSuspicious(r *http.Request, reason string) {
	s.logger.WarnContext(r.Context(), "Suspicious request rejected",
		"reason", reason,
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// fail writes the response for err, logging it when it is not a client error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldError, err.Error())
	}
	resp.Write(w)
}
