// Package config загружает конфигурацию сервиса из окружения.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shaiso/actual-bridge/internal/scheduler"
)

// ErrConfigMissing — не задана обязательная переменная окружения.
var ErrConfigMissing = errors.New("required configuration missing")

// Config — конфигурация сервиса.
type Config struct {
	Port string
	Env  string

	// Сервер синхронизации
	ServerURL    string
	Password     string
	BudgetID     string
	FilePassword string
	DataDir      string

	// Логирование
	LogLevel  string
	LogFormat string

	// Необязательная инфраструктура
	DatabaseURL string
	AMQPURL     string

	// Фоновая синхронизация: SyncCron имеет приоритет над SyncInterval.
	SyncInterval time.Duration
	SyncCron     string
}

// Load читает конфигурацию из переменных окружения.
//
// Обязательные: ACTUAL_SERVER_URL, ACTUAL_PASSWORD.
// Остальные имеют значения по умолчанию или необязательны.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("NODE_ENV", "production")
	v.SetDefault("ACTUAL_DATA_DIR", "./.actual-data")

	cfg := &Config{
		Port:         v.GetString("PORT"),
		Env:          v.GetString("NODE_ENV"),
		ServerURL:    strings.TrimRight(v.GetString("ACTUAL_SERVER_URL"), "/"),
		Password:     v.GetString("ACTUAL_PASSWORD"),
		BudgetID:     v.GetString("ACTUAL_BUDGET_ID"),
		FilePassword: v.GetString("ACTUAL_FILE_PASSWORD"),
		DataDir:      v.GetString("ACTUAL_DATA_DIR"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		AMQPURL:      v.GetString("AMQP_URL"),
		SyncCron:     v.GetString("SYNC_CRON"),
	}

	if raw := v.GetString("SYNC_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse SYNC_INTERVAL: %w", err)
		}
		cfg.SyncInterval = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var missing []string
	if c.ServerURL == "" {
		missing = append(missing, "ACTUAL_SERVER_URL")
	}
	if c.Password == "" {
		missing = append(missing, "ACTUAL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigMissing, strings.Join(missing, ", "))
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.SyncInterval)
	}
	if c.SyncCron != "" {
		if err := scheduler.ValidateCronExpr(c.SyncCron); err != nil {
			return fmt.Errorf("SYNC_CRON: %w", err)
		}
	}
	return nil
}

// Addr возвращает адрес для http.Server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// IsProduction проверяет, запущен ли сервис в production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
