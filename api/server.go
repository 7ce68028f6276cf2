/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for browser clients

ROUTE GROUPS:
  /api/difference, /api/truncate, /api/same, /api/units/*   Calculations
  /api/profiles/*                                           Named profiles
  /api/history                                              Calculation log
  /api/reset                                                Clear all data (testing/demo)
  /health                                                   Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public, /api/reset
  included.

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

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. With no
// origins, local development origins are allowed.
func NewRouter(h *Handler, origins ...string) *chi.Mux {
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/difference", h.Difference)
		r.Post("/truncate", h.Truncate)
		r.Post("/same", h.Same)
		r.Get("/units/{field}", h.Units)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Post("/", h.SaveProfile)
			r.Get("/{name}", h.GetProfile)
			r.Delete("/{name}", h.DeleteProfile)
		})

		r.Get("/history", h.ListHistory)
		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
