package api

import (
	"net/http"

	"github.com/shaiso/actual-bridge/internal/telemetry"
)

// Health сообщает, что процесс жив. Внешних вызовов не делает.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	OK(w)
}

// DebugBudgets возвращает сырой листинг бюджетов.
// Требует только инициализации клиента, бюджет не загружается.
// GET /debug/budgets
func (h *Handler) DebugBudgets(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	if HandleError(w, logger, h.readiness.EnsureInit(r.Context())) {
		return
	}

	budgets, err := h.data.ListBudgets(r.Context())
	if HandleError(w, logger, err) {
		return
	}

	Success(w, budgets)
}

// ListBudgets возвращает бюджеты в форме {name,id,groupId,cloudFileId,state}.
// GET /budgets
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	if HandleError(w, logger, h.ready(r.Context())) {
		return
	}

	budgets, err := h.data.ListBudgets(r.Context())
	if HandleError(w, logger, err) {
		return
	}

	result := make([]BudgetResponse, len(budgets))
	for i, b := range budgets {
		result[i] = BudgetFromDomain(b)
	}

	Success(w, result)
}

// ListAccounts возвращает счета загруженного бюджета.
// GET /accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	if HandleError(w, logger, h.ready(r.Context())) {
		return
	}

	accounts, err := h.data.ListAccounts(r.Context())
	if HandleError(w, logger, err) {
		return
	}

	Success(w, accounts)
}
