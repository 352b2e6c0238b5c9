package actual

import (
	"errors"
	"fmt"
)

// Ошибки клиента.
var (
	// ErrNotInitialized — Init ещё не вызван.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrNoBudgetLoaded — бюджет не загружен (нужен Load).
	ErrNoBudgetLoaded = errors.New("no budget loaded")

	// ErrFileNotFound — файл не найден на сервере.
	ErrFileNotFound = errors.New("budget file not found on server")

	// ErrLocalNotFound — локальная копия не найдена.
	ErrLocalNotFound = errors.New("local budget not found")

	// ErrPasswordRequired — файл зашифрован, а пароль не задан.
	ErrPasswordRequired = errors.New("file is encrypted and no password was provided")

	// ErrWrongFilePassword — пароль файла не прошёл проверку ключа на сервере.
	ErrWrongFilePassword = errors.New("wrong file password")

	// ErrDecrypt — не удалось расшифровать данные (неверный пароль или повреждённые данные).
	ErrDecrypt = errors.New("decryption failed")

	// ErrUnauthorized — сервер отклонил токен или пароль.
	ErrUnauthorized = errors.New("unauthorized")
)

// ServerError — ошибка, возвращённая сервером синхронизации.
type ServerError struct {
	Path   string
	Status int
	Reason string
}

func (e *ServerError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("actual server %s: HTTP %d", e.Path, e.Status)
	}
	return fmt.Sprintf("actual server %s: HTTP %d: %s", e.Path, e.Status, e.Reason)
}
