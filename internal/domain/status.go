package domain

// BudgetState — состояние файла бюджета относительно локальной реплики.
//
// Жизненный цикл:
//
//	remote → synced (после загрузки)
//	local / synced → detached (удалённый файл исчез с сервера)
type BudgetState string

const (
	// BudgetStateLocal — файл есть только локально, к серверу не привязан.
	BudgetStateLocal BudgetState = "local"

	// BudgetStateRemote — файл есть только на сервере, локальной копии нет.
	BudgetStateRemote BudgetState = "remote"

	// BudgetStateSynced — локальная копия привязана к файлу на сервере.
	BudgetStateSynced BudgetState = "synced"

	// BudgetStateDetached — локальная копия ссылается на удалённый файл,
	// которого больше нет на сервере.
	BudgetStateDetached BudgetState = "detached"
)

// IsMaterialized возвращает true, если у бюджета есть локальная копия.
func (s BudgetState) IsMaterialized() bool {
	switch s {
	case BudgetStateLocal, BudgetStateSynced, BudgetStateDetached:
		return true
	default:
		return false
	}
}

// SyncStatus — результат одного прохода синхронизации.
type SyncStatus string

const (
	// SyncStatusSucceeded — синхронизация завершилась успешно.
	SyncStatusSucceeded SyncStatus = "SUCCEEDED"

	// SyncStatusFailed — синхронизация завершилась с ошибкой.
	SyncStatusFailed SyncStatus = "FAILED"
)

// SyncTrigger — причина запуска синхронизации.
type SyncTrigger string

const (
	// SyncTriggerStartup — первичная синхронизация при переходе в FullyReady.
	SyncTriggerStartup SyncTrigger = "startup"

	// SyncTriggerRequest — синхронизация перед ответом на HTTP-запрос.
	SyncTriggerRequest SyncTrigger = "request"

	// SyncTriggerManual — явный POST /sync.
	SyncTriggerManual SyncTrigger = "manual"

	// SyncTriggerSchedule — фоновая синхронизация по расписанию.
	SyncTriggerSchedule SyncTrigger = "schedule"

	// SyncTriggerEvent — запрос синхронизации из очереди RabbitMQ.
	SyncTriggerEvent SyncTrigger = "event"
)
