/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the web client

ROUTE GROUPS:
  /api/users/*     Accounts, points, preferences, reminders
  /api/loyalty/*   Static program info
  /api/admin/*     Manual sweep trigger
  /api/health      Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Post("/{id}/earn", h.Earn)
			r.Post("/{id}/redeem", h.Redeem)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Get("/{id}/preferences", h.GetPreferences)
			r.Put("/{id}/preferences", h.UpdatePreferences)
			r.Get("/{id}/reminders", h.ListReminders)
		})

		// Loyalty program routes
		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/tiers", h.GetTierTable)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})
	})

	return r
}
