// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go             — Handler с DI (оркестратор, данные бюджета, журнал, logger)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (recovery, request id, logging + метрики)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects (request/response)
//   - budget_handler.go      — /health, /debug/budgets, /budgets, /accounts
//   - transaction_handler.go — /transactions (JSON и CSV)
//   - sync_handler.go        — /sync, /sync/history
//
// Каждый обработчик данных сначала доводит оркестратор до готовности,
// затем обращается к клиенту синхронизации.
package api
