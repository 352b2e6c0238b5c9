package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/actual-bridge/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id          UUID PRIMARY KEY,
		budget_id   TEXT NOT NULL,
		trigger     TEXT NOT NULL,
		status      TEXT NOT NULL,
		messages    INTEGER NOT NULL DEFAULT 0,
		error       TEXT,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sync_runs_started_at_idx ON sync_runs (started_at DESC);
`

// SyncRepo — журнал проходов синхронизации.
type SyncRepo struct {
	pool *pgxpool.Pool
}

// NewSyncRepo создаёт новый SyncRepo.
func NewSyncRepo(pool *pgxpool.Pool) *SyncRepo {
	return &SyncRepo{pool: pool}
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func (r *SyncRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure sync_runs schema: %w", err)
	}
	return nil
}

// Record сохраняет запись о проходе синхронизации.
func (r *SyncRepo) Record(ctx context.Context, rec *domain.SyncRecord) error {
	query := `
		INSERT INTO sync_runs (id, budget_id, trigger, status, messages, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.BudgetID,
		string(rec.Trigger),
		string(rec.Status),
		rec.Messages,
		nullString(rec.Error),
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// List возвращает последние limit записей, новые первыми.
func (r *SyncRepo) List(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	query := `
		SELECT id, budget_id, trigger, status, messages, error, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	records := []domain.SyncRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.SyncRecord, error) {
	var (
		rec             domain.SyncRecord
		trigger, status string
		errText         *string
	)
	err := row.Scan(
		&rec.ID,
		&rec.BudgetID,
		&trigger,
		&status,
		&rec.Messages,
		&errText,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan sync run: %w", err)
	}

	rec.Trigger = domain.SyncTrigger(trigger)
	rec.Status = domain.SyncStatus(status)
	if errText != nil {
		rec.Error = *errText
	}
	return &rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
