package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// Budget DTOs

// BudgetResponse — бюджет в ответе /budgets.
// Отсутствующие идентификаторы отдаются как null.
type BudgetResponse struct {
	Name        string             `json:"name"`
	ID          *string            `json:"id"`
	GroupID     *string            `json:"groupId"`
	CloudFileID *string            `json:"cloudFileId"`
	State       domain.BudgetState `json:"state"`
}

// BudgetFromDomain конвертирует domain.Budget в BudgetResponse.
func BudgetFromDomain(b domain.Budget) BudgetResponse {
	return BudgetResponse{
		Name:        b.Name,
		ID:          optional(b.ID),
		GroupID:     optional(b.GroupID),
		CloudFileID: optional(b.CloudFileID),
		State:       b.State,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Transaction DTOs

// TransactionsResponse — JSON-ответ /transactions.
type TransactionsResponse struct {
	Account      domain.Account       `json:"account"`
	Start        string               `json:"start"`
	End          string               `json:"end"`
	Count        int                  `json:"count"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Sync DTOs

// SyncRecordResponse — запись журнала в ответе /sync/history.
type SyncRecordResponse struct {
	ID         uuid.UUID          `json:"id"`
	BudgetID   string             `json:"budget_id"`
	Trigger    domain.SyncTrigger `json:"trigger"`
	Status     domain.SyncStatus  `json:"status"`
	Messages   int                `json:"messages"`
	Error      string             `json:"error,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	DurationMs int64              `json:"duration_ms"`
}

// SyncRecordFromDomain конвертирует domain.SyncRecord в SyncRecordResponse.
func SyncRecordFromDomain(r domain.SyncRecord) SyncRecordResponse {
	return SyncRecordResponse{
		ID:         r.ID,
		BudgetID:   r.BudgetID,
		Trigger:    r.Trigger,
		Status:     r.Status,
		Messages:   r.Messages,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
}

// SyncHistoryResponse — ответ /sync/history.
type SyncHistoryResponse struct {
	Data  []SyncRecordResponse `json:"data"`
	Total int                  `json:"total"`
}
