package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/actual-bridge/internal/budget"
	"github.com/shaiso/actual-bridge/internal/domain"
	"github.com/shaiso/actual-bridge/internal/telemetry"
)

const defaultDataDir = "./.actual-data"

// Client — возможности клиента синхронизации, нужные оркестратору.
type Client interface {
	Init(ctx context.Context, serverURL, password, dataDir string) error
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	Download(ctx context.Context, remoteID, filePassword string) (string, error)
	Load(ctx context.Context, localID, filePassword string) error
	Sync(ctx context.Context) (*domain.SyncResult, error)
	Shutdown(ctx context.Context) error
}

// SyncJournal сохраняет историю синхронизаций.
type SyncJournal interface {
	Record(ctx context.Context, rec *domain.SyncRecord) error
}

// EventPublisher уведомляет внешних подписчиков о синхронизациях.
type EventPublisher interface {
	PublishBudgetSynced(ctx context.Context, rec *domain.SyncRecord) error
}

// Orchestrator владеет состоянием готовности клиента.
//
// Переходы Uninitialized → SdkReady → FullyReady сериализуются мьютексом:
// параллельные запросы ждут первого и видят достигнутое им состояние.
// Проверка FullyReady не берёт мьютекс.
type Orchestrator struct {
	client    Client
	journal   SyncJournal
	publisher EventPublisher

	serverURL    string
	password     string
	dataDir      string
	preferredID  string
	filePassword string

	state  atomic.Int32
	mu     sync.Mutex
	active *domain.Budget

	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	Client Client

	// Journal и Publisher необязательны.
	Journal   SyncJournal
	Publisher EventPublisher

	ServerURL    string
	Password     string
	DataDir      string // default: ./.actual-data
	BudgetID     string // предпочитаемый бюджет
	FilePassword string // пароль шифрования файла бюджета

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		client:       cfg.Client,
		journal:      cfg.Journal,
		publisher:    cfg.Publisher,
		serverURL:    cfg.ServerURL,
		password:     cfg.Password,
		dataDir:      dataDir,
		preferredID:  cfg.BudgetID,
		filePassword: cfg.FilePassword,
		logger:       logger,
	}
}

// State возвращает текущее состояние готовности.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	telemetry.ReadinessState.Set(float64(s))
	o.logger.Info("readiness state changed", "state", s.String())
}

// Active возвращает загруженный бюджет или nil.
func (o *Orchestrator) Active() *domain.Budget {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil {
		return nil
	}
	b := *o.active
	return &b
}

// EnsureInit переводит клиент в SdkReady.
func (o *Orchestrator) EnsureInit(ctx context.Context) error {
	if o.State().AtLeast(StateSDKReady) {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	return o.initLocked(ctx)
}

func (o *Orchestrator) initLocked(ctx context.Context) error {
	if o.State().AtLeast(StateSDKReady) {
		return nil
	}

	if o.serverURL == "" || o.password == "" {
		return fmt.Errorf("%w: server url and password are required", ErrInit)
	}

	if err := os.MkdirAll(o.dataDir, 0o750); err != nil {
		return fmt.Errorf("%w: create data dir: %v", ErrInit, err)
	}

	if err := o.client.Init(ctx, o.serverURL, o.password, o.dataDir); err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	o.setState(StateSDKReady)
	return nil
}

// EnsureReady переводит клиент в FullyReady.
//
// 1. Инициализирует клиент (если ещё не)
// 2. Получает список бюджетов и выбирает один
// 3. Загружает его по стратегиям: local → group → cloud
// 4. Выполняет один проход синхронизации
//
// Повторный вызов после успеха ничего не делает.
// При ошибке состояние не меняется, следующий вызов повторит попытку.
func (o *Orchestrator) EnsureReady(ctx context.Context) error {
	if o.State() == StateFullyReady {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.State() == StateFullyReady {
		return nil
	}

	if err := o.initLocked(ctx); err != nil {
		return err
	}

	// 1. Список бюджетов
	budgets, err := o.client.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	// 2. Выбор бюджета
	target, err := budget.Resolve(budgets, o.preferredID)
	if err != nil {
		return err
	}

	logger := o.logger.With("budget_name", target.Name)
	logger.Info("budget resolved",
		"id", target.ID,
		"group_id", target.GroupID,
		"cloud_file_id", target.CloudFileID,
	)

	// 3. Загрузка
	localID, err := runStrategies(ctx, target, o.loadStrategies(), logger)
	if err != nil {
		return err
	}

	active := *target
	active.ID = localID
	o.active = &active

	// 4. Первичная синхронизация
	if _, err := o.sync(ctx, domain.SyncTriggerStartup); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	o.setState(StateFullyReady)
	telemetry.WithBudgetID(logger, localID).Info("budget ready")
	return nil
}

// Sync выполняет один проход синхронизации загруженного бюджета.
func (o *Orchestrator) Sync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncResult, error) {
	if o.State() != StateFullyReady {
		return nil, ErrNotReady
	}
	return o.sync(ctx, trigger)
}

// sync вызывает клиент и фиксирует результат.
// Ошибки журнала и публикации не влияют на результат синхронизации.
func (o *Orchestrator) sync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncResult, error) {
	rec := &domain.SyncRecord{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	if o.active != nil {
		rec.BudgetID = o.active.ID
	}

	result, err := o.client.Sync(ctx)

	rec.FinishedAt = time.Now().UTC()
	if err != nil {
		rec.Status = domain.SyncStatusFailed
		rec.Error = err.Error()
	} else {
		rec.Status = domain.SyncStatusSucceeded
		if result != nil {
			rec.Messages = result.Applied
			if result.BudgetID != "" {
				rec.BudgetID = result.BudgetID
			}
		}
	}

	telemetry.ObserveSync(string(trigger), string(rec.Status), rec.Messages, rec.Duration())
	o.logger.Debug("sync pass finished",
		"sync_id", rec.ID,
		"trigger", trigger,
		"status", rec.Status,
		"messages", rec.Messages,
		"duration", rec.Duration(),
	)

	o.record(ctx, rec)

	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	return result, nil
}

func (o *Orchestrator) record(ctx context.Context, rec *domain.SyncRecord) {
	if o.journal != nil {
		if err := o.journal.Record(ctx, rec); err != nil {
			o.logger.Warn("failed to record sync", "sync_id", rec.ID, "error", err)
		}
	}

	if o.publisher != nil && rec.Status == domain.SyncStatusSucceeded {
		if err := o.publisher.PublishBudgetSynced(ctx, rec); err != nil {
			o.logger.Warn("failed to publish budget.synced", "sync_id", rec.ID, "error", err)
		}
	}
}

// Shutdown освобождает ресурсы клиента (best effort).
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if !o.State().AtLeast(StateSDKReady) {
		return nil
	}
	if err := o.client.Shutdown(ctx); err != nil {
		return fmt.Errorf("client shutdown: %w", err)
	}
	return nil
}
