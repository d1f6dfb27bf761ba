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
  /api/students/*      Students, payments, statements, balance
  /api/school-years/*  School year management
  /api/grades/*        Grade management
  /api/seed            Demo dataset loader (dev only)

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
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/statement", h.GetStatement)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.SubmitPayment)
			r.Post("/{id}/balance/resync", h.ResyncBalance)
		})

		// School year routes
		r.Route("/school-years", func(r chi.Router) {
			r.Get("/", h.ListSchoolYears)
			r.Post("/", h.CreateSchoolYear)
			r.Post("/{id}/activate", h.ActivateSchoolYear)
		})

		// Grade routes
		r.Route("/grades", func(r chi.Router) {
			r.Get("/", h.ListGrades)
			r.Post("/", h.CreateGrade)
		})

		// Demo data
		r.Post("/seed", h.SeedDemo)
	})

	return r
}
