package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shaiso/Octobot/internal/config"
)

// defaultPostgresDatabase используется, если vhost не задан.
const defaultPostgresDatabase = "postgres"

// Postgres — транспорт PostgreSQL LISTEN/NOTIFY. Очередь соответствует
// каналу уведомлений, vhost — имени базы.
type Postgres struct {
	cfg    config.QueueConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *pgx.Conn
}

// NewPostgres создаёт Postgres транспорт.
func NewPostgres(cfg config.QueueConfig, logger *slog.Logger) *Postgres {
	return &Postgres{cfg: cfg, logger: logger}
}

// PostgresURL собирает строку подключения.
func PostgresURL(cfg config.QueueConfig) string {
	database := cfg.Vhost
	if database == "" || database == "/" {
		database = defaultPostgresDatabase
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Addr(),
		Path:   "/" + database,
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

// Connect подключается и выполняет LISTEN.
func (t *Postgres) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked(ctx)

	conn, err := pgx.Connect(ctx, PostgresURL(t.cfg))
	if err != nil {
		return fmt.Errorf("connect postgres %s: %w", t.cfg.Addr(), err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{t.cfg.Name}.Sanitize()); err != nil {
		conn.Close(ctx)
		return fmt.Errorf("listen %s: %w", t.cfg.Name, err)
	}

	t.conn = conn

	t.logger.Info("listening on postgres channel", "addr", t.cfg.Addr(), "channel", t.cfg.Name)
	return nil
}

// Receive ждёт следующее уведомление.
func (t *Postgres) Receive(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, ErrNotConnected
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := t.conn.WaitForNotification(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) && !t.conn.IsClosed() {
			return nil, nil
		}
		return nil, fmt.Errorf("wait for notification on %s: %w", t.cfg.Name, err)
	}

	return &Delivery{Body: []byte(n.Payload)}, nil
}

// Ack ничего не делает: NOTIFY не хранит сообщения.
func (t *Postgres) Ack(context.Context, *Delivery) error {
	return nil
}

// Publish отправляет pg_notify в канал очереди.
func (t *Postgres) Publish(ctx context.Context, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return ErrNotConnected
	}

	if _, err := t.conn.Exec(ctx, "SELECT pg_notify($1, $2)", t.cfg.Name, string(body)); err != nil {
		return fmt.Errorf("notify %s: %w", t.cfg.Name, err)
	}
	return nil
}

// Close закрывает соединение.
func (t *Postgres) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked(ctx)
}

func (t *Postgres) closeLocked(ctx context.Context) error {
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close(ctx)
	t.conn = nil

	if err != nil {
		return fmt.Errorf("close postgres connection: %w", err)
	}
	return nil
}

func (t *Postgres) String() string {
	return t.cfg.String()
}
