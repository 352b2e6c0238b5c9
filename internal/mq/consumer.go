package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// Handler — функция обработки сообщения.
// Ошибка означает nack: сообщение уходит в DLQ очереди.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет сообщения до отмены ctx.
// При разрыве соединения ждёт переподключения и продолжает.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("consumer interrupted, waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag (auto-generated)
		false,           // auto-ack (мы ack вручную)
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает доставки, пока канал открыт и ctx не отменён.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			if c.handle(ctx, raw.Body) {
				raw.Ack(false)
			} else {
				raw.Nack(false, false)
			}
		}
	}
}

// handle разбирает и обрабатывает одно сообщение.
// Возвращает true, если сообщение нужно подтвердить.
// Паника в обработчике отклоняет сообщение в DLQ и не роняет процесс.
func (c *Consumer) handle(ctx context.Context, body []byte) (ack bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in message handler", "panic", r, "stack", string(debug.Stack()))
			ack = false
		}
	}()

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", string(body))
		return false
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("received message")

	if err := c.handler(ctx, &msg); err != nil {
		logger.Error("handler failed", "error", err)
		return false
	}
	return true
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal payload — map[string]any, перекодируем в T
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}

// Syncer — то, что умеет выполнить проход синхронизации.
type Syncer interface {
	EnsureReady(ctx context.Context) error
	Sync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncResult, error)
}

// SyncRequestHandler возвращает Handler, который на sync.requested
// выполняет проход синхронизации. Сообщения других типов отклоняются.
func SyncRequestHandler(s Syncer, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg *Message) error {
		if msg.Type != MessageTypeSyncRequested {
			return fmt.Errorf("unexpected message type %q", msg.Type)
		}

		payload, err := ParsePayload[SyncRequestedPayload](msg)
		if err != nil {
			return err
		}

		if err := s.EnsureReady(ctx); err != nil {
			return fmt.Errorf("ensure ready: %w", err)
		}

		result, err := s.Sync(ctx, domain.SyncTriggerEvent)
		if err != nil {
			return err
		}

		logger.Info("sync request handled",
			"message_id", msg.ID,
			"reason", payload.Reason,
			"applied", result.Applied,
		)
		return nil
	}
}
