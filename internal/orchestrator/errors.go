package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrInit — клиент не удалось инициализировать
	// (нет URL сервера или пароля, либо клиент вернул ошибку).
	ErrInit = errors.New("client init failed")

	// ErrLoad — ни одна стратегия загрузки бюджета не сработала.
	// Оборачивает ошибку последней попытки.
	ErrLoad = errors.New("budget load failed")

	// ErrNotReady — операция требует загруженного бюджета.
	ErrNotReady = errors.New("budget not loaded")
)
