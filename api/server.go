/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/dashboard, /api/trend, /api/alerts   Read views
  /api/settings                             Global knobs
  /api/simulation/*                         What-if mutations and lifecycle
  /api/audit/export                         Audit download
  /api/scenarios/*                          Demo scenarios
  /metrics                                  Prometheus

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/periods", h.ListPeriods)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/trend", h.GetTrend)
		r.Get("/alerts", h.GetAlerts)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		r.Route("/simulation", func(r chi.Router) {
			r.Route("/clients", func(r chi.Router) {
				r.Post("/", h.CreateClient)
				r.Post("/{id}/field", h.SetClientField)
				r.Delete("/{id}", h.DeleteClient)
			})
			r.Route("/costs", func(r chi.Router) {
				r.Post("/", h.CreateCost)
				r.Post("/{id}/field", h.SetCostField)
				r.Delete("/{id}", h.DeleteCost)
			})
			r.Get("/events", h.ListEvents)
			r.Post("/validate", h.Validate)
			r.Post("/commit", h.Commit)
			r.Post("/reset", h.ResetSimulation)
		})

		r.Get("/audit/export", h.ExportAudit)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Prometheus endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// DefaultMetrics registers the service metrics on the default registry,
// which is what promhttp.Handler serves.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}
