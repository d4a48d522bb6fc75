// Package httpapi wires the HTTP surface of the finance service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/storeops/finledger/internal/service/balance"
	"github.com/storeops/finledger/internal/service/inventory"
	"github.com/storeops/finledger/internal/service/journal"
	"github.com/storeops/finledger/internal/service/ledger"
	"github.com/storeops/finledger/internal/service/report"
)

// Server wires handlers and middleware using Chi.
// It composes the chart, journal, balance, report and inventory services.
type Server struct {
	chart    ledger.Service
	journal  journal.Service
	balances balance.Service
	reports  report.Service
	stock    inventory.Service
	idem     IdempotencyStore
	ready    ReadyChecker
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(chart ledger.Service, journalSvc journal.Service, balances balance.Service, reports report.Service, stock inventory.Service, idem IdempotencyStore, ready ReadyChecker, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(corsFromEnv())
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	if auth := authJWTFromEnv(); auth != nil {
		r.Use(auth)
	}

	s := &Server{
		chart:    chart,
		journal:  journalSvc,
		balances: balances,
		reports:  reports,
		stock:    stock,
		idem:     idem,
		ready:    ready,
		rt:       r,
		log:      logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	s.rt.Route("/finance", func(r chi.Router) {
		// Chart of accounts
		r.With(s.validatePostGroup()).Post("/account-groups", s.postGroup)
		r.Get("/account-groups", s.listGroups)
		r.Get("/account-groups/{id}", s.getGroup)
		r.Patch("/account-groups/{id}", s.patchGroup)
		r.With(s.validatePostLedger()).Post("/ledgers", s.postLedger)
		r.With(s.validateListLedgers()).Get("/ledgers", s.listLedgers)
		r.Get("/ledgers/{id}", s.getLedger)
		r.Patch("/ledgers/{id}", s.patchLedger)
		r.Delete("/ledgers/{id}", s.deactivateLedger)
		r.Get("/ledgers/{id}/balance", s.getLedgerBalance)
		// Journal
		r.With(s.validatePostTransaction()).Post("/transactions", s.postTransaction)
		r.With(s.validateListTransactions()).Get("/transactions", s.listTransactions)
		r.Get("/transactions/{id}", s.getTransaction)
		r.Patch("/transactions/{id}/approve", s.approveTransaction)
		r.Patch("/transactions/{id}/reject", s.rejectTransaction)
		// Reports
		r.Get("/reports/daybook", s.dayBook)
		r.Get("/reports/ledger", s.ledgerStatement)
		r.Get("/reports/profit-loss", s.profitLoss)
		r.Get("/reports/balance-sheet", s.balanceSheet)
		r.Get("/trial-balance", s.trialBalance)
		// Inventory valuation
		r.Get("/inventory-assets/realtime-calculation", s.inventoryValuation)
		// Dictionary
		r.Get("/dictionary/groups", s.getGroupsDictionary)
	})
	// Ops (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}

// corsFromEnv builds CORS middleware; CORS_ALLOWED_ORIGINS is a comma list,
// defaulting to the local dashboard dev servers.
func corsFromEnv() func(http.Handler) http.Handler {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Actor"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
