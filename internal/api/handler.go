package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// Readiness — оркестратор готовности клиента.
type Readiness interface {
	EnsureInit(ctx context.Context) error
	EnsureReady(ctx context.Context) error
	Sync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncResult, error)
}

// BudgetData — чтение данных загруженного бюджета.
type BudgetData interface {
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListTransactions(ctx context.Context, accountID, start, end string) ([]domain.Transaction, error)
}

// SyncHistory — журнал проходов синхронизации.
type SyncHistory interface {
	List(ctx context.Context, limit int) ([]domain.SyncRecord, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	readiness Readiness
	data      BudgetData
	history   SyncHistory
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Readiness Readiness
	Data      BudgetData

	// History — журнал синхронизаций (nil, если журнал не настроен).
	History SyncHistory

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		readiness: cfg.Readiness,
		data:      cfg.Data,
		history:   cfg.History,
		logger:    logger,
	}
}

// ready доводит оркестратор до FullyReady и выполняет проход синхронизации.
func (h *Handler) ready(ctx context.Context) error {
	if err := h.readiness.EnsureReady(ctx); err != nil {
		return err
	}
	_, err := h.readiness.Sync(ctx, domain.SyncTriggerRequest)
	return err
}
