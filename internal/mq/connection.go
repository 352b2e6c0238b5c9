package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultHeartbeat  = 10 * time.Second
	defaultMaxBackoff = 30 * time.Second
	connectionName    = "actual-bridge"
)

// ErrNoChannel — канал недоступен (соединение разорвано или закрыто).
var ErrNoChannel = errors.New("no amqp channel available")

// ConnectionConfig — параметры соединения с RabbitMQ.
type ConnectionConfig struct {
	// URL — AMQP_URL.
	URL string

	// Heartbeat — интервал heartbeat (по умолчанию 10s).
	Heartbeat time.Duration

	// MaxBackoff — максимальная задержка между попытками переподключения (по умолчанию 30s).
	MaxBackoff time.Duration

	Logger *slog.Logger
}

// Connection — AMQP соединение с одним каналом и автоматическим reconnect.
//
// Канал заменяется при переподключении, поэтому его нельзя
// кэшировать: берите через Channel или WithChannel.
type Connection struct {
	cfg    ConnectionConfig
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	closedCh    chan struct{}
	reconnectCh chan struct{}
}

// NewConnection подключается к RabbitMQ и запускает наблюдение за соединением.
func NewConnection(cfg ConnectionConfig) (*Connection, error) {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		cfg:         cfg,
		logger:      logger.With("component", "amqp", "host", redactURL(cfg.URL)),
		closedCh:    make(chan struct{}),
		reconnectCh: make(chan struct{}, 1),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watch()

	return c, nil
}

func (c *Connection) connect() error {
	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat:  c.cfg.Heartbeat,
		Properties: amqp.Table{"connection_name": connectionName},
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	c.logger.Info("connected to RabbitMQ")
	return nil
}

// watch ждёт разрыва соединения и переподключается.
func (c *Connection) watch() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-notifyClose:
			if err != nil {
				c.logger.Warn("amqp connection lost", "error", err)
			}
			if !c.reconnect() {
				return
			}
		}
	}
}

// reconnect повторяет подключение с экспоненциальной задержкой.
// Возвращает false, если соединение закрыли во время ожидания.
func (c *Connection) reconnect() bool {
	delay := time.Second

	for {
		c.logger.Info("attempting to reconnect", "delay", delay)

		select {
		case <-c.closedCh:
			return false
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = min(delay*2, c.cfg.MaxBackoff)
			continue
		}

		select {
		case c.reconnectCh <- struct{}{}:
		default:
		}
		return true
	}
}

// Channel возвращает текущий AMQP канал (nil при разрыве).
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify сигналит после каждого успешного переподключения.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnectCh
}

// WithChannel выполняет fn с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.Channel()
	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}
	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closedCh)

	var errs []error
	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("amqp connection closed")
	return errors.Join(errs...)
}

// redactURL оставляет от AMQP URL только host для логов.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	return u.Host
}
