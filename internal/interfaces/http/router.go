package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware the route tree is
// built from.  Nil members are skipped.
type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	HealthHandler   *handlers.HealthHandler

	Auth        *middleware.AuthMiddleware
	RateLimiter middleware.RateLimiter
	CORSOrigins []string
	// RequestTimeout bounds each /api/v1 request; zero leaves it unbounded.
	RequestTimeout time.Duration

	Logger         logging.Logger
	Metrics        middleware.HTTPRecorder
	MetricsHandler http.Handler
	// MetricsPath defaults to /metrics.
	MetricsPath string
}

// NewRouter builds the HTTP route tree:
//
//	GET  /healthz, /readyz        probes, unauthenticated
//	GET  /metrics                 Prometheus scrape endpoint
//	     /api/v1/documents/...    authenticated, rate limited
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORSOrigins)))
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.Auth != nil {
			api.Use(cfg.Auth.Handler)
		}
		// after auth so callers are keyed by API key where possible
		if cfg.RateLimiter != nil {
			api.Use(middleware.RateLimit(cfg.RateLimiter, middleware.ClientKey))
		}
		if cfg.RequestTimeout > 0 {
			api.Use(chimw.Timeout(cfg.RequestTimeout))
		}

		if cfg.DocumentHandler != nil {
			api.Route("/documents", cfg.DocumentHandler.RegisterRoutes)
		}
	})

	return r
}

//Personal.AI order the ending
