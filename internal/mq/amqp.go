package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Octobot/internal/config"
)

// AMQP — транспорт RabbitMQ.
//
// Топология на очередь: durable direct exchange с именем очереди,
// durable queue с тем же именем и привязка по routing key = имя очереди.
type AMQP struct {
	cfg    config.QueueConfig
	logger *slog.Logger

	mu         sync.Mutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
	tag        string
}

// NewAMQP создаёт AMQP транспорт.
func NewAMQP(cfg config.QueueConfig, logger *slog.Logger) *AMQP {
	return &AMQP{cfg: cfg, logger: logger}
}

// AMQPURL собирает URL подключения из конфигурации очереди.
func AMQPURL(cfg config.QueueConfig) string {
	username, password := cfg.Username, cfg.Password
	if username == "" {
		username, password = "guest", "guest"
	}

	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(username, password),
		Host:   cfg.Addr(),
		Path:   "/" + strings.TrimPrefix(cfg.Vhost, "/"),
	}
	return u.String()
}

// Connect открывает соединение, канал и объявляет топологию.
func (t *AMQP) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()

	conn, err := amqp.DialConfig(AMQPURL(t.cfg), amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("dial amqp %s: %w", t.cfg.Addr(), err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, t.cfg.Name); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	t.conn = conn
	t.channel = ch

	t.logger.Info("connected to RabbitMQ", "addr", t.cfg.Addr(), "vhost", t.cfg.Vhost)
	return nil
}

// declareTopology объявляет exchange, очередь и привязку.
func declareTopology(ch *amqp.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,     // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}

	_, err = ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}

	if err := ch.QueueBind(name, name, name, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}

	return nil
}

// consumeLocked начинает потребление при первом Receive.
func (t *AMQP) consumeLocked() error {
	if t.deliveries != nil {
		return nil
	}

	// Одно неподтверждённое сообщение на воркер.
	if err := t.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	tag := "octobot-" + uuid.NewString()
	deliveries, err := t.channel.Consume(
		t.cfg.Name, // queue
		tag,        // consumer tag
		false,      // auto-ack (мы ack вручную)
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", t.cfg.Name, err)
	}

	t.deliveries = deliveries
	t.tag = tag
	t.logger.Debug("consumer started", "consumer_tag", tag)
	return nil
}

// Receive ждёт следующее сообщение.
func (t *AMQP) Receive(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	t.mu.Lock()
	if t.channel == nil {
		t.mu.Unlock()
		return nil, ErrNotConnected
	}
	if err := t.consumeLocked(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	deliveries := t.deliveries
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case raw, ok := <-deliveries:
		if !ok {
			return nil, ErrConnectionClosed
		}
		return &Delivery{Body: raw.Body, Token: raw}, nil
	}
}

// Ack подтверждает сообщение.
func (t *AMQP) Ack(_ context.Context, d *Delivery) error {
	raw, ok := d.Token.(amqp.Delivery)
	if !ok {
		return ErrInvalidDelivery
	}
	if err := raw.Ack(false); err != nil {
		return fmt.Errorf("ack delivery %d: %w", raw.DeliveryTag, err)
	}
	return nil
}

// Publish публикует persistent сообщение в exchange очереди.
func (t *AMQP) Publish(ctx context.Context, body []byte) error {
	t.mu.Lock()
	ch := t.channel
	t.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}

	err := ch.PublishWithContext(
		ctx,
		t.cfg.Name, // exchange
		t.cfg.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", t.cfg.Name, err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (t *AMQP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *AMQP) closeLocked() error {
	var errs []error

	if t.channel != nil {
		if err := t.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if t.conn != nil {
		if err := t.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	t.channel = nil
	t.conn = nil
	t.deliveries = nil
	t.tag = ""

	return errors.Join(errs...)
}

func (t *AMQP) String() string {
	return t.cfg.String()
}
