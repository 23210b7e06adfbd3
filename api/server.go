/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for internal tooling

ROUTE GROUPS:
  /api/employees/*      Employee reads and balances
  /api/allocations/*    Allocation reads, ledger, cancellation
  /api/admin/*          Accrual and rollover triggers
  /api/leave-days       Day-count queries
  /api/scenarios/*      Demo dataset loaders (development)
  /healthz              Liveness probe

SECURITY NOTE:
  No authentication middleware. The engine is meant to sit behind an
  HR system gateway, not face the public internet.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/balance", h.GetBalance)
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Get("/{id}", h.GetAllocation)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Post("/{id}/cancel", h.CancelAllocation)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/accrual", h.TriggerAccrual)
			r.Post("/rollover", h.TriggerRollover)
		})

		r.Post("/leave-days", h.LeaveDays)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
