/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     Request logging
  4. CORS:       Cross-origin requests for frontend
  5. Auth:       JWT bearer token -> leave.Actor (all /api routes)

ROUTE GROUPS:
  /api/leave-types   Catalog, per-member annotated
  /api/balances      The actor's balances
  /api/requests/*    Request lifecycle
  /api/overlaps      Advisory overlap lookup
  /api/holidays/*    Holiday calendar (writes admin-gated)
  /healthz           Liveness, unauthenticated

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: authentication middleware
  - cmd/leaved: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/leave-engine/leave"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *Authenticator) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes, all behind authentication
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/leave-types", h.ListLeaveTypes)
		r.Get("/balances", h.GetBalances)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Put("/{id}", h.EditRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		r.Get("/overlaps", h.GetOverlaps)

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.With(RequireRole(leave.RoleAdmin)).Post("/", h.CreateHoliday)
			r.With(RequireRole(leave.RoleAdmin)).Delete("/{id}", h.DeleteHoliday)
		})
	})

	return r
}
