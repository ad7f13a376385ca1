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
  /api/obligations/*    Obligation records and settlement
  /api/instruments/*    Payment instruments
  /api/indicators/*     Economic indicator series
  /api/budgets/*        Budgets and status
  /api/recurrence/*     Pending, confirm, snooze, reminders
  /api/accrual/*        Period accrual queries
  /api/valuation/*      Plan analysis and projections
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. Single-user deployment behind localhost.

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
		// Obligation routes
		r.Route("/obligations", func(r chi.Router) {
			r.Get("/", h.ListObligations)
			r.Post("/", h.CreateObligation)
			r.Get("/{id}", h.GetObligation)
			r.Put("/{id}", h.UpdateObligation)
			r.Delete("/{id}", h.DeleteObligation)
			r.Post("/{id}/settle", h.SettleObligation)
			r.Delete("/{id}/settle", h.UnsettleObligation)
		})

		// Instrument routes
		r.Route("/instruments", func(r chi.Router) {
			r.Get("/", h.ListInstruments)
			r.Post("/", h.CreateInstrument)
		})

		// Indicator routes
		r.Route("/indicators", func(r chi.Router) {
			r.Get("/", h.ListIndicators)
			r.Put("/", h.PutIndicators)
		})

		// Budget routes
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.ListBudgets)
			r.Post("/", h.CreateBudget)
			r.Get("/{id}/status", h.GetBudgetStatus)
		})

		// Recurrence routes
		r.Route("/recurrence", func(r chi.Router) {
			r.Get("/pending", h.ListPending)
			r.Post("/confirm", h.ConfirmTemplate)
			r.Post("/confirm-all", h.ConfirmAllTemplates)
			r.Post("/snooze", h.SnoozeTemplate)
			r.Get("/due-soon", h.ListDueSoon)
			r.Get("/duplicates", h.ListDuplicates)
		})

		// Accrual routes
		r.Route("/accrual", func(r chi.Router) {
			r.Get("/total", h.GetAccrualTotal)
			r.Get("/monthly", h.GetAccrualMonthly)
		})

		// Valuation routes
		r.Route("/valuation", func(r chi.Router) {
			r.Post("/plan", h.AnalyzePlan)
			r.Post("/projection", h.ProjectPayments)
			r.Post("/compare", h.CompareFinancing)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Landing page: endpoint index for curl-first usage.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Finance Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Finance Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/obligations">/api/obligations</a> - List obligation records</li>
<li><a href="/api/recurrence/pending">/api/recurrence/pending</a> - Pending monthly suggestions</li>
<li><a href="/api/indicators">/api/indicators</a> - Economic indicator series</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
