// Package httpapi wires the HTTP surface of the service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/raragao87/opheliahub/internal/catalog"
	"github.com/raragao87/opheliahub/internal/locker"
	"github.com/raragao87/opheliahub/internal/service/account"
	"github.com/raragao87/opheliahub/internal/service/balance"
	"github.com/raragao87/opheliahub/internal/service/budget"
	"github.com/raragao87/opheliahub/internal/service/split"
	"github.com/raragao87/opheliahub/internal/service/tag"
	"github.com/raragao87/opheliahub/internal/service/transaction"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	accountSvc account.Service
	txSvc      transaction.Service
	splitSvc   split.Service
	tagSvc     tag.Service
	budgetSvc  budget.Service
	balanceSvc balance.Service
	store      Store
	log        *slog.Logger
	rt         *chi.Mux
}

// New constructs the HTTP server with routes and middleware. One account
// locker is shared by every service that serializes per-account writes.
func New(store Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	locks := locker.New()
	s := &Server{
		accountSvc: account.New(store, store),
		txSvc:      transaction.New(store, store, locks),
		splitSvc:   split.New(store, store, locks),
		tagSvc:     tag.New(store, store, catalog.DefaultTagTree()),
		budgetSvc:  budget.New(store, store),
		balanceSvc: balance.New(store, store, locks),
		store:      store,
		log:        logger,
		rt:         r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches per-route middleware.
func (s *Server) routes() {
	// Accounts
	s.rt.With(s.validatePostAccount()).Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Patch("/v1/accounts/{id}", s.updateAccount)
	s.rt.Delete("/v1/accounts/{id}", s.deactivateAccount)
	s.rt.Post("/v1/accounts/{id}/share", s.shareAccount)
	s.rt.Post("/v1/accounts/{id}/unshare", s.unshareAccount)
	s.rt.Get("/v1/accounts/{id}/balance", s.getAccountBalance)
	s.rt.Post("/v1/accounts/{id}/balance/refresh", s.refreshAccountBalance)
	// Account types
	s.rt.Get("/v1/account-types", s.listAccountTypes)
	s.rt.Post("/v1/account-types", s.postAccountType)
	s.rt.Delete("/v1/account-types/{name}", s.deleteAccountType)
	// Transactions
	s.rt.With(s.validatePostTransaction()).Post("/v1/transactions", s.postTransaction)
	s.rt.Get("/v1/transactions", s.listTransactions)
	s.rt.Patch("/v1/transactions/{id}", s.updateTransaction)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	// Splits
	s.rt.With(s.validateSplitTransaction()).Post("/v1/transactions/{id}/split", s.splitTransaction)
	s.rt.Post("/v1/transactions/{id}/merge", s.mergeTransaction)
	s.rt.Get("/v1/transactions/{id}/splits", s.listSplits)
	s.rt.Patch("/v1/splits/{id}", s.updateSplit)
	// Links
	s.rt.Post("/v1/links", s.postLink)
	s.rt.Delete("/v1/links/{id}", s.deleteLink)
	// Tags
	s.rt.Post("/v1/tags", s.postTag)
	s.rt.Get("/v1/tags/tree", s.tagTree)
	s.rt.Patch("/v1/tags/{id}", s.updateTag)
	s.rt.Delete("/v1/tags/{id}", s.deleteTag)
	s.rt.Post("/v1/tags/{id}/move", s.moveTag)
	s.rt.Post("/v1/tags/bulk", s.bulkUpdateTags)
	// Budgets
	s.rt.Post("/v1/budgets", s.postBudget)
	s.rt.Get("/v1/budgets", s.listBudgets)
	s.rt.Post("/v1/budgets/{id}/activate", s.activateBudget)
	s.rt.Post("/v1/budgets/{id}/items", s.postBudgetItem)
	s.rt.Patch("/v1/budget-items/{id}", s.updateBudgetItem)
	s.rt.Delete("/v1/budget-items/{id}", s.deleteBudgetItem)
	s.rt.Get("/v1/budgets/{id}/vs-actual", s.budgetVsActual)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Get("/metrics", metricsHandler().ServeHTTP)
}
