// Package api provides the HTTP API for Itinera.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/api/handler"
	"github.com/itinera/itinera/internal/api/middleware"
	"github.com/itinera/itinera/internal/api/response"
	"github.com/itinera/itinera/internal/featureflags"
	"github.com/itinera/itinera/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	Planner  handler.Planner
	Flags    *featureflags.Service
	Registry *resilience.Registry

	// Checks are run by the readiness probe.
	Checks map[string]handler.Check
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: the request ID must exist before anything logs or
	// writes a problem, and recovery must sit inside the logger.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NoStore)
	r.Use(middleware.RequireJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route matches "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, r.Method+" is not supported on "+r.URL.Path)
	})

	itineraries := handler.NewItineraryHandler(cfg.Planner, cfg.Logger)
	ops := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Flags:     cfg.Flags,
		Checks:    cfg.Checks,
	})

	planningRateLimit := middleware.RateLimitByIP(middleware.PlanningRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", ops.HealthCheck)
			r.Get("/ready", ops.ReadinessCheck)
			r.Get("/status", ops.SystemStatus)
		})

		// Searches fan out over permutations and modes.
		r.Group(func(r chi.Router) {
			r.Use(planningRateLimit)
			r.Post("/itineraries:optimize", itineraries.Optimize)
			r.Post("/transport:optimize", itineraries.OptimizeTransport)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/conditions", itineraries.GetCondition)
			r.Post("/itineraries:schedule", itineraries.Schedule)
			r.Post("/itineraries:monitor", itineraries.Monitor)
			r.Post("/itineraries:alternatives", itineraries.Alternatives)
		})

		if cfg.Flags != nil {
			flags := handler.NewFeatureFlagsHandler(cfg.Flags, cfg.Logger)
			r.Route("/admin/feature-flags", func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(middleware.AdminRateLimit)) // 10 req/min
				r.Get("/", flags.List)
				r.Put("/", flags.Upsert)
				r.Post("/invalidate", flags.InvalidateCache)
			})
		}
	})

	return r
}
