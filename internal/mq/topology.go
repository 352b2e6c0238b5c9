package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeBudgets Exchange = "actual.budgets"
	ExchangeDLQ     Exchange = "actual.dlq"
)

// Queues — имена очередей.
const (
	QueueBudgetsSynced   Queue = "budgets.synced"
	QueueSyncRequests    Queue = "budgets.sync-requests"
	QueueDLQSyncRequests Queue = "dlq.sync-requests"
)

// budgetsSyncedTTL — сколько событие budget.synced живёт в очереди (мс).
const budgetsSyncedTTL = 24 * 60 * 60 * 1000

// Routing keys.
const (
	RoutingKeySynced      RoutingKey = "synced"
	RoutingKeySyncRequest RoutingKey = "sync-request"
	RoutingKeyDLQRequests RoutingKey = "sync-requests"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology возвращает объявления обменников, очередей и привязок.
func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangeBudgets, "direct"},
		{ExchangeDLQ, "direct"},
	}

	queues := []queueDecl{
		// budgets.synced — для внешних потребителей; старые события истекают
		{QueueBudgetsSynced, amqp.Table{"x-message-ttl": int32(budgetsSyncedTTL)}},

		// budgets.sync-requests — отклонённые запросы уходят в DLQ
		{QueueSyncRequests, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQRequests),
		}},

		{QueueDLQSyncRequests, nil},
	}

	bindings := []bindingDecl{
		{QueueBudgetsSynced, RoutingKeySynced, ExchangeBudgets},
		{QueueSyncRequests, RoutingKeySyncRequest, ExchangeBudgets},
		{QueueDLQSyncRequests, RoutingKeyDLQRequests, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q.name), // name
				true,           // durable
				false,          // delete when unused
				false,          // exclusive
				false,          // no-wait
				q.args,         // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
