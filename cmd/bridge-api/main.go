// bridge-api — HTTP-мост к серверу синхронизации Actual Budget.
//
// Конфигурация читается из окружения (см. internal/config).
// DATABASE_URL включает журнал синхронизаций, AMQP_URL включает
// события budget.synced и очередь запросов синхронизации,
// SYNC_INTERVAL/SYNC_CRON включают фоновую синхронизацию.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/actual-bridge/internal/actual"
	"github.com/shaiso/actual-bridge/internal/api"
	"github.com/shaiso/actual-bridge/internal/config"
	"github.com/shaiso/actual-bridge/internal/mq"
	"github.com/shaiso/actual-bridge/internal/orchestrator"
	"github.com/shaiso/actual-bridge/internal/repo"
	"github.com/shaiso/actual-bridge/internal/scheduler"
	"github.com/shaiso/actual-bridge/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Конфигурация не прочитана: логгер с настройками по умолчанию.
		telemetry.SetupLogger(telemetry.LogOptions{}).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(telemetry.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Env:    cfg.Env,
	})
	logger.Info("starting bridge-api", "env", cfg.Env, "server_url", cfg.ServerURL)
	if !cfg.IsProduction() {
		logger.Warn("not running in production mode, debug logging is on by default")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := actual.New(actual.Config{Logger: logger})

	orchCfg := orchestrator.Config{
		Client:       client,
		ServerURL:    cfg.ServerURL,
		Password:     cfg.Password,
		DataDir:      cfg.DataDir,
		BudgetID:     cfg.BudgetID,
		FilePassword: cfg.FilePassword,
		Logger:       logger,
	}
	apiCfg := api.Config{
		Data:   client,
		Logger: logger,
	}

	// Журнал синхронизаций (PostgreSQL)
	if cfg.DatabaseURL != "" {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		syncRepo := repo.NewSyncRepo(pool)
		if err := syncRepo.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare sync journal", "error", err)
			os.Exit(1)
		}
		orchCfg.Journal = syncRepo
		apiCfg.History = syncRepo
		logger.Info("sync journal enabled")
	}

	// RabbitMQ: события и запросы синхронизации
	var conn *mq.Connection
	if cfg.AMQPURL != "" {
		conn, err = mq.NewConnection(mq.ConnectionConfig{URL: cfg.AMQPURL, Logger: logger})
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("failed to setup topology", "error", err)
			os.Exit(1)
		}
		orchCfg.Publisher = mq.NewPublisher(conn, logger)
	}

	orch := orchestrator.New(orchCfg)
	apiCfg.Readiness = orch

	if conn != nil {
		consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueSyncRequests,
			Handler: mq.SyncRequestHandler(orch, logger),
		})
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("sync request consumer stopped", "error", err)
			}
		}()
	}

	// Фоновая синхронизация
	sched, err := scheduler.New(scheduler.Config{
		Syncer:   orch,
		Interval: cfg.SyncInterval,
		Cron:     cfg.SyncCron,
		Logger:   logger,
	})
	switch {
	case errors.Is(err, scheduler.ErrNoSchedule):
	case err != nil:
		logger.Error("invalid sync schedule", "error", err)
		os.Exit(1)
	default:
		go sched.Run(ctx)
	}

	mux := http.NewServeMux()
	api.NewHandler(apiCfg).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Error("client shutdown error", "error", err)
	}

	logger.Info("stopped")
}
