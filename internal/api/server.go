package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/matchwatch/internal/api/handler"
	"github.com/albapepper/matchwatch/internal/config"
	"github.com/albapepper/matchwatch/internal/metrics"
)

// Deps are the components the router exposes.
type Deps struct {
	// Context bounds work started over HTTP that outlives a request, such as
	// the poller loop.
	Context   context.Context
	Scheduler handler.Scheduler
	Pusher    handler.Pusher
	DB        handler.Pinger // nil unless the dedup store is Postgres
	Views     http.Handler   // WebSocket hub
	Metrics   *metrics.Metrics
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(cfg *config.Config, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h := handler.New(ctx, cfg, deps.Scheduler, deps.Pusher, deps.DB)

	// --- Unwrapped routes ---
	// The upgrade needs the raw ResponseWriter, so views bypass timing and gzip.
	if deps.Views != nil {
		r.Get("/ws", deps.Views.ServeHTTP)
	}
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(TimingMiddleware)
		r.Use(middleware.Compress(5)) // gzip

		// Root
		r.Get("/", h.Root)

		// Health checks
		r.Route("/health", func(r chi.Router) {
			r.Get("/", h.HealthCheck)
			r.Get("/db", h.HealthCheckDB)
		})

		// Swagger UI
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/docs/doc.json"),
		))

		// API v1 routes
		r.Route("/api/v1", func(r chi.Router) {
			// Matches
			r.Get("/matches", h.GetMatches)
			r.Post("/sync", h.Sync)

			// Scheduler
			r.Get("/scheduler", h.SchedulerStatus)
			r.Post("/scheduler/start", h.StartScheduler)
			r.Post("/scheduler/stop", h.StopScheduler)

			// Notifications
			r.Post("/push", h.Push)
		})
	})

	return r
}
