package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeBudgetSynced  MessageType = "budget.synced"
	MessageTypeSyncRequested MessageType = "sync.requested"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// BudgetSyncedPayload — payload события budget.synced.
type BudgetSyncedPayload struct {
	SyncID     uuid.UUID          `json:"sync_id"`
	BudgetID   string             `json:"budget_id"`
	Trigger    domain.SyncTrigger `json:"trigger"`
	Messages   int                `json:"messages"`
	FinishedAt time.Time          `json:"finished_at"`
}

// SyncRequestedPayload — payload запроса sync.requested.
type SyncRequestedPayload struct {
	// Reason — произвольное описание источника запроса.
	Reason string `json:"reason,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishBudgetSynced публикует событие об успешной синхронизации.
func (p *Publisher) PublishBudgetSynced(ctx context.Context, rec *domain.SyncRecord) error {
	return p.Publish(ctx, ExchangeBudgets, RoutingKeySynced, budgetSyncedMessage(rec))
}

// budgetSyncedMessage строит событие budget.synced.
// ID сообщения совпадает с ID записи журнала.
func budgetSyncedMessage(rec *domain.SyncRecord) *Message {
	return &Message{
		ID:   rec.ID.String(),
		Type: MessageTypeBudgetSynced,
		Payload: BudgetSyncedPayload{
			SyncID:     rec.ID,
			BudgetID:   rec.BudgetID,
			Trigger:    rec.Trigger,
			Messages:   rec.Messages,
			FinishedAt: rec.FinishedAt,
		},
		Timestamp: time.Now().UTC(),
	}
}
