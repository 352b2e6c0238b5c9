package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// loadStrategy — один способ получить локальную копию бюджета.
type loadStrategy struct {
	// name — имя для логов.
	name string

	// applicable — можно ли применять стратегию к бюджету.
	applicable func(b *domain.Budget) bool

	// load загружает бюджет и возвращает его локальный ID.
	load func(ctx context.Context, b *domain.Budget) (string, error)
}

// loadStrategies возвращает стратегии в порядке приоритета:
//   - local — локальная копия уже есть на диске
//   - group — скачать по GroupID
//   - cloud — скачать по CloudFileID
func (o *Orchestrator) loadStrategies() []loadStrategy {
	return []loadStrategy{
		{
			name: "local",
			applicable: func(b *domain.Budget) bool {
				return b.ID != "" && dirExists(filepath.Join(o.dataDir, b.ID))
			},
			load: func(ctx context.Context, b *domain.Budget) (string, error) {
				if err := o.client.Load(ctx, b.ID, o.filePassword); err != nil {
					return "", err
				}
				return b.ID, nil
			},
		},
		{
			name:       "group",
			applicable: func(b *domain.Budget) bool { return b.GroupID != "" },
			load: func(ctx context.Context, b *domain.Budget) (string, error) {
				return o.downloadAndLoad(ctx, b.GroupID)
			},
		},
		{
			name:       "cloud",
			applicable: func(b *domain.Budget) bool { return b.CloudFileID != "" },
			load: func(ctx context.Context, b *domain.Budget) (string, error) {
				return o.downloadAndLoad(ctx, b.CloudFileID)
			},
		},
	}
}

func (o *Orchestrator) downloadAndLoad(ctx context.Context, remoteID string) (string, error) {
	localID, err := o.client.Download(ctx, remoteID, o.filePassword)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", remoteID, err)
	}
	if err := o.client.Load(ctx, localID, o.filePassword); err != nil {
		return "", fmt.Errorf("load %s: %w", localID, err)
	}
	return localID, nil
}

// runStrategies пробует стратегии по порядку.
// Первая успешная побеждает; при неудаче всех возвращается ErrLoad
// с ошибкой последней попытки.
func runStrategies(ctx context.Context, b *domain.Budget, strategies []loadStrategy, logger *slog.Logger) (string, error) {
	var lastErr error

	for _, s := range strategies {
		if !s.applicable(b) {
			continue
		}

		localID, err := s.load(ctx, b)
		if err == nil {
			logger.Info("budget loaded", "strategy", s.name, "local_id", localID)
			return localID, nil
		}

		logger.Warn("load strategy failed", "strategy", s.name, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no applicable load strategy")
	}
	return "", fmt.Errorf("%w: %w", ErrLoad, lastErr)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
