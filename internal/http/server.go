// Package http exposes the finance service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxJSONBodyBytes      = 1 << 20
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Options configures a Server
type Options struct {
	RateLimitPerMinute int
	MaxUploadBytes     int64
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]ReadinessCheck
	// Metrics adds application counters to /metrics.
	Metrics func() map[string]any
	Logger  *log.Logger
}

type Server struct {
	http.Server
	svc      *services.FinanceService
	opts     Options
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.FinanceService, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	logger := log.OrNop(opts.Logger).WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		svc:      svc,
		opts:     opts,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.flagSuspicious)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitWrites)
		r.Use(middleware.AllowContentType("application/json", "multipart/form-data"))

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Patch("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/stats", s.handleStats)
		r.Get("/analytics/categories", s.handleCategories)
		r.Get("/analytics/budget", s.handleBudget)
		r.Get("/analytics/daily", s.handleDaily)

		r.Get("/peers", s.handleListPeers)
		r.Post("/peers", s.handleCreatePeer)
		r.Get("/peers/balances", s.handlePeerBalances)
		r.Patch("/peers/{id}", s.handleUpdatePeer)
		r.Delete("/peers/{id}", s.handleDeletePeer)
		r.Post("/peers/{id}/settle", s.handleSettlePeer)

		r.Get("/profile", s.handleGetProfile)
		r.Patch("/profile", s.handleUpdateProfile)

		r.Get("/insights", s.handleGetInsights)
		r.Post("/insights/refresh", s.handleRefreshInsights)
		r.Delete("/insights", s.handleClearInsights)

		r.Post("/chat", s.handleChat)

		r.Post("/import", s.handleImport)
		r.Route("/import/staging", func(r chi.Router) {
			r.Post("/", s.handleStage)
			r.Get("/", s.handleGetStaged)
			r.Delete("/", s.handleDiscardStaged)
			r.Post("/commit", s.handleCommitStaged)
			r.Patch("/{id}", s.handleUpdateStaged)
			r.Delete("/{id}", s.handleRemoveStaged)
		})
	})

	return r
}

// limitWrites rate limits every method that can change state.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
