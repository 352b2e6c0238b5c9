package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/actual-bridge/internal/domain"
	"github.com/shaiso/actual-bridge/internal/telemetry"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Sync запускает один проход синхронизации.
// POST /sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	if HandleError(w, logger, h.readiness.EnsureReady(r.Context())) {
		return
	}

	_, err := h.readiness.Sync(r.Context(), domain.SyncTriggerManual)
	if HandleError(w, logger, err) {
		return
	}

	OK(w)
}

// SyncHistory возвращает последние записи журнала синхронизаций.
// GET /sync/history?limit=...
func (h *Handler) SyncHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		NotFound(w, "sync journal is not configured")
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.List(r.Context(), limit)
	if HandleError(w, telemetry.FromContext(r.Context()), err) {
		return
	}

	result := make([]SyncRecordResponse, len(records))
	for i, rec := range records {
		result[i] = SyncRecordFromDomain(rec)
	}

	Success(w, SyncHistoryResponse{Data: result, Total: len(result)})
}
