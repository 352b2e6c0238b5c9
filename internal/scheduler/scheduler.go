package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// Syncer — то, что умеет выполнить проход синхронизации.
type Syncer interface {
	EnsureReady(ctx context.Context) error
	Sync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncResult, error)
}

// Scheduler — фоновая синхронизация по расписанию.
type Scheduler struct {
	syncer   Syncer
	schedule cron.Schedule
	logger   *slog.Logger

	now func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Syncer Syncer

	// Interval — SYNC_INTERVAL.
	Interval time.Duration

	// Cron — SYNC_CRON.
	Cron string

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
// Возвращает ErrNoSchedule, если расписание не задано.
func New(cfg Config) (*Scheduler, error) {
	schedule, err := ParseSchedule(cfg.Interval, cfg.Cron)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		syncer:   cfg.Syncer,
		schedule: schedule,
		logger:   logger.With("component", "scheduler"),
		now:      time.Now,
	}, nil
}

// Next возвращает время следующего запуска после from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Run выполняет тики по расписанию до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.Next(s.now())
		s.logger.Debug("next sync scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
		}

		if err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduled sync failed", "error", err)
		}
	}
}

// Tick выполняет один проход: готовность, затем синхронизация.
// Паника внутри прохода превращается в ошибку.
func (s *Scheduler) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduled sync", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := s.syncer.EnsureReady(ctx); err != nil {
		return fmt.Errorf("ensure ready: %w", err)
	}

	result, err := s.syncer.Sync(ctx, domain.SyncTriggerSchedule)
	if err != nil {
		return err
	}

	s.logger.Info("scheduled sync completed",
		"budget_id", result.BudgetID,
		"applied", result.Applied,
	)
	return nil
}
