package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel определяет уровень логирования.
// Возможные значения: DEBUG, INFO, WARN, ERROR.
// Пустое значение: DEBUG вне production, иначе INFO.
func LogLevel(level, env string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	if env != "" && env != "production" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// LogOptions — параметры логгера.
type LogOptions struct {
	// Level — LOG_LEVEL.
	Level string

	// Format — LOG_FORMAT: "json" или "text".
	// Пустое значение: json в production, text в остальных окружениях.
	Format string

	// Env — NODE_ENV.
	Env string

	// Output — куда писать (по умолчанию os.Stdout).
	Output io.Writer
}

// SetupLogger инициализирует глобальный логгер.
func SetupLogger(opts LogOptions) *slog.Logger {
	level := LogLevel(opts.Level, opts.Env)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := opts.Format
	if format == "" {
		format = "json"
		if opts.Env != "" && opts.Env != "production" {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// Ключи контекста для передачи данных в логгер.
type ctxKey string

const (
	// CtxLogger — ключ для логгера в контексте.
	CtxLogger ctxKey = "logger"
)

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithRequestID возвращает логгер с добавленным request_id.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithBudgetID возвращает логгер с добавленным budget_id.
func WithBudgetID(logger *slog.Logger, budgetID string) *slog.Logger {
	return logger.With("budget_id", budgetID)
}
