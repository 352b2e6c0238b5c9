// Package scheduler запускает фоновую синхронизацию бюджета по расписанию.
//
// Расписание задаётся либо cron-выражением (SYNC_CRON, 5 полей),
// либо интервалом (SYNC_INTERVAL). Если заданы оба, побеждает cron.
//
// Структура:
//   - scheduler.go — Scheduler (Run, Tick)
//   - cron.go      — разбор расписания и вычисление следующего запуска
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Syncer:   orch,
//	    Interval: cfg.SyncInterval,
//	    Cron:     cfg.SyncCron,
//	    Logger:   logger,
//	})
//
//	go sched.Run(ctx)
//
// Тики выполняются последовательно: следующий тик планируется
// только после завершения предыдущего.
package scheduler
