package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/shaiso/Octobot/internal/config"
)

// natsQueueGroup — группа подписчиков: сообщение получает один воркер.
const natsQueueGroup = "octobot"

// NATS — транспорт NATS. Очередь соответствует subject.
type NATS struct {
	cfg    config.QueueConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATS создаёт NATS транспорт.
func NewNATS(cfg config.QueueConfig, logger *slog.Logger) *NATS {
	return &NATS{cfg: cfg, logger: logger}
}

// NATSURL собирает URL подключения.
func NATSURL(cfg config.QueueConfig) string {
	u := url.URL{Scheme: "nats", Host: cfg.Addr()}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

// Connect подключается и подписывается на subject.
//
// Встроенный reconnect клиента отключён: переподключением управляет воркер.
func (t *NATS) Connect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()

	conn, err := nats.Connect(NATSURL(t.cfg),
		nats.Name("octobot"),
		nats.NoReconnect(),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect nats %s: %w", t.cfg.Addr(), err)
	}

	sub, err := conn.QueueSubscribeSync(t.cfg.Name, natsQueueGroup)
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", t.cfg.Name, err)
	}

	t.conn = conn
	t.sub = sub

	t.logger.Info("subscribed to nats subject", "addr", t.cfg.Addr(), "subject", t.cfg.Name)
	return nil
}

// Receive ждёт следующее сообщение subject.
func (t *NATS) Receive(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	t.mu.Lock()
	sub := t.sub
	t.mu.Unlock()

	if sub == nil {
		return nil, ErrNotConnected
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := sub.NextMsgWithContext(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		return nil, fmt.Errorf("receive from %s: %w", t.cfg.Name, err)
	}

	return &Delivery{Body: msg.Data}, nil
}

// Ack ничего не делает: core NATS не подтверждает сообщения.
func (t *NATS) Ack(context.Context, *Delivery) error {
	return nil
}

// Publish публикует сообщение и дожидается flush.
func (t *NATS) Publish(ctx context.Context, body []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	if err := conn.Publish(t.cfg.Name, body); err != nil {
		return fmt.Errorf("publish to %s: %w", t.cfg.Name, err)
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", t.cfg.Name, err)
	}
	return nil
}

// Close закрывает подписку и соединение.
func (t *NATS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *NATS) closeLocked() error {
	var err error
	if t.sub != nil && t.conn != nil && !t.conn.IsClosed() {
		if uerr := t.sub.Unsubscribe(); uerr != nil {
			err = fmt.Errorf("unsubscribe: %w", uerr)
		}
	}
	if t.conn != nil {
		t.conn.Close()
	}

	t.sub = nil
	t.conn = nil

	return err
}

func (t *NATS) String() string {
	return t.cfg.String()
}
