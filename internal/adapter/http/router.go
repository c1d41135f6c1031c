package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/adapter/http/handler"
	"github.com/iho/txengine/internal/adapter/http/middleware"
	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler *handler.AccountHandler
	RunHandler     *handler.RunHandler
	HealthHandler  *handler.HealthHandler
	MetricsHandler http.Handler
	Metrics        *metrics.Metrics
	RateLimiter    *middleware.RateLimiter
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/accounts", cfg.AccountHandler.List)
		r.Get("/accounts/{client}", cfg.AccountHandler.Get)
		r.Get("/stats", cfg.AccountHandler.Stats)

		if cfg.RunHandler != nil {
			r.Get("/runs/latest", cfg.RunHandler.Latest)
			r.Get("/runs/{run}/accounts", cfg.RunHandler.List)
			r.Get("/runs/{run}/accounts/{client}", cfg.RunHandler.Get)
		}
	})

	return r
}
