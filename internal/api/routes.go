package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		RequestID(h.logger),
		Logging(),
	)

	// Service
	mux.Handle("GET /health", chain(http.HandlerFunc(h.Health)))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Budget data
	mux.Handle("GET /debug/budgets", chain(http.HandlerFunc(h.DebugBudgets)))
	mux.Handle("GET /budgets", chain(http.HandlerFunc(h.ListBudgets)))
	mux.Handle("GET /accounts", chain(http.HandlerFunc(h.ListAccounts)))
	mux.Handle("GET /transactions", chain(http.HandlerFunc(h.ListTransactions)))

	// Sync
	mux.Handle("POST /sync", chain(http.HandlerFunc(h.Sync)))
	mux.Handle("GET /sync/history", chain(http.HandlerFunc(h.SyncHistory)))
}
