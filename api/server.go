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
  /api/leaves/*    Submission, history, balances, decisions, cancel
  /api/manager/*   Manager pending queue
  /api/admin/*     Admin decisions, escalation queue, provisioning

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
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-User-Role"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", h.SubmitLeave)
			r.Get("/mine", h.MyLeaves)
			r.Get("/types", h.LeaveTypes)
			r.Get("/balances", h.MyBalances)
			r.Put("/{id}/status", h.DecideLeave)
			r.Put("/{id}/cancel", h.CancelLeave)
		})

		r.Route("/manager", func(r chi.Router) {
			r.Get("/pending", h.PendingApprovals)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Put("/leaves/{id}/status", h.DecideLeave)
			r.Get("/approvals-needed", h.ApprovalsNeeded)
			r.Post("/users", h.CreateUser)
		})
	})

	return r
}
