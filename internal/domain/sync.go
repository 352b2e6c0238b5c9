package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncResult — результат одного прохода синхронизации клиента.
type SyncResult struct {
	// BudgetID — локальный ID синхронизированного бюджета.
	BudgetID string `json:"budget_id"`

	// Applied — количество применённых сообщений.
	Applied int `json:"applied"`

	// Timestamp — последняя метка времени, полученная от сервера.
	Timestamp string `json:"timestamp,omitempty"`
}

// SyncRecord — запись журнала синхронизаций.
type SyncRecord struct {
	ID         uuid.UUID   `json:"id"`
	BudgetID   string      `json:"budget_id"`
	Trigger    SyncTrigger `json:"trigger"`
	Status     SyncStatus  `json:"status"`
	Messages   int         `json:"messages"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Duration возвращает длительность синхронизации.
func (r *SyncRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
