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
  /api/reconciliations     Run reconciliation batches (dry-run capable)
  /api/ledger              Import/list general-ledger lines
  /api/cap-history         Inspect committed cap references
  /api/estimates           Record current monthly estimates
  /api/payments            Record received payments
  /api/health              Liveness probe

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

	r.Route("/api", func(r chi.Router) {
		r.Post("/reconciliations", h.RunReconciliation)

		r.Route("/ledger", func(r chi.Router) {
			r.Post("/", h.ImportLedger)
			r.Get("/{propertyID}", h.ListLedger)
		})

		r.Route("/cap-history", func(r chi.Router) {
			r.Get("/{propertyID}/{tenantID}", h.GetCapHistory)
		})

		r.Route("/estimates", func(r chi.Router) {
			r.Put("/{propertyID}/{tenantID}", h.SetEstimate)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/{propertyID}/{tenantID}", h.RecordPayment)
		})

		r.Get("/health", h.Health)
	})

	return r
}
