package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// setupRoutes configures the router and middleware stack.
func setupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health checks (consumed by the load balancer, no CORS concerns)
	r.Get("/health", h.HealthCheck)
	r.Get("/health/live", h.Liveness)
	r.Get("/health/ready", h.Readiness)

	// Email links land here directly, outside the /api prefix
	r.Get("/verify", h.Verify)
	r.Get("/unsubscribe", h.Unsubscribe)

	r.Route("/api", func(r chi.Router) {
		r.Post("/subscribe", h.Subscribe)
		r.Get("/iss-now", h.ISSNow)
		r.Get("/news", h.News)
	})

	return r
}
