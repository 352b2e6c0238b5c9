package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNoSchedule — не задан ни интервал, ни cron-выражение.
var ErrNoSchedule = errors.New("neither sync interval nor cron expression is set")

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule строит расписание. Cron-выражение имеет приоритет над интервалом.
func ParseSchedule(interval time.Duration, cronExpr string) (cron.Schedule, error) {
	if cronExpr != "" {
		schedule, err := cronParser.Parse(cronExpr)
		if err != nil {
			return nil, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
		}
		return schedule, nil
	}

	if interval > 0 {
		if interval < time.Second {
			return nil, fmt.Errorf("sync interval %s is shorter than one second", interval)
		}
		return cron.Every(interval), nil
	}

	return nil, ErrNoSchedule
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
