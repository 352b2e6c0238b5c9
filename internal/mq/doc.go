// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий синхронизации
//   - consumer.go   — потребление запросов на синхронизацию
//
// Типы сообщений:
//   - budget.synced  — бюджет успешно синхронизирован
//   - sync.requested — внешний запрос на проход синхронизации
//
// Exchanges:
//   - actual.budgets — события и запросы по бюджетам
//   - actual.dlq     — dead letter queue
package mq
