/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/login       Credential check
  /api/admin/*     Dashboard, employees, requests, overtime, reports
  /api/employee/*  Self-service: overview, history, leave, profile

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
		AllowedOrigins:   h.Cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/overview", h.AdminOverview)
			r.Get("/reports/monthly", h.MonthlyReport)

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Post("/", h.CreateEmployee)
				r.Put("/", h.UpdateEmployee)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Get("/", h.ListRequests)
				r.Post("/", h.SetRequestStatus)
			})

			r.Route("/overtime", func(r chi.Router) {
				r.Get("/", h.ListOvertime)
				r.Post("/", h.CreateOvertime)
				r.Put("/", h.UpdateOvertime)
				r.Delete("/", h.DeleteOvertime)
			})
		})

		r.Route("/employee", func(r chi.Router) {
			r.Get("/overview", h.EmployeeOverview)
			r.Get("/history", h.EmployeeHistory)
			r.Post("/leave", h.SubmitLeave)
			r.Put("/profile", h.UpdateProfile)
		})
	})

	return r
}
