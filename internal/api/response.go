package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUpstream      ErrorCode = "UPSTREAM_ERROR"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// OKResponse — ответ {"ok": true}.
type OKResponse struct {
	OK bool `json:"ok"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет 200 с данными как есть.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// OK отправляет {"ok": true}.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, OKResponse{OK: true})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// UpstreamError отправляет 500 с текстом ошибки клиента синхронизации.
func UpstreamError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("upstream error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeUpstream, err.Error())
}

// HandleError преобразует ошибку в HTTP ответ.
// Возвращает false, если err == nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, domain.ErrAccountNotFound) {
		NotFound(w, err.Error())
		return true
	}

	UpstreamError(w, logger, err)
	return true
}
