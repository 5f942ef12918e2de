package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Octobot/internal/config"
)

// Redis — транспорт Redis pub/sub. Очередь соответствует каналу.
//
// Каждый подписчик получает каждое сообщение; подтверждение не требуется.
type Redis struct {
	cfg    config.QueueConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *redis.Client
	pubsub *redis.PubSub
}

// NewRedis создаёт Redis транспорт.
func NewRedis(cfg config.QueueConfig, logger *slog.Logger) *Redis {
	return &Redis{cfg: cfg, logger: logger}
}

// Connect подключается и подписывается на канал.
func (t *Redis) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()

	client := redis.NewClient(&redis.Options{
		Addr:       t.cfg.Addr(),
		Username:   t.cfg.Username,
		Password:   t.cfg.Password,
		MaxRetries: -1,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis %s: %w", t.cfg.Addr(), err)
	}

	pubsub := client.Subscribe(ctx, t.cfg.Name)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return fmt.Errorf("subscribe %s: %w", t.cfg.Name, err)
	}

	t.client = client
	t.pubsub = pubsub

	t.logger.Info("subscribed to redis channel", "addr", t.cfg.Addr(), "channel", t.cfg.Name)
	return nil
}

// Receive ждёт следующее сообщение канала.
func (t *Redis) Receive(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	t.mu.Lock()
	pubsub := t.pubsub
	t.mu.Unlock()

	if pubsub == nil {
		return nil, ErrNotConnected
	}

	for {
		msg, err := pubsub.ReceiveTimeout(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, nil
			}
			return nil, fmt.Errorf("receive from %s: %w", t.cfg.Name, err)
		}

		switch m := msg.(type) {
		case *redis.Message:
			return &Delivery{Body: []byte(m.Payload)}, nil
		case *redis.Subscription, *redis.Pong:
			// служебные сообщения пропускаем
			continue
		default:
			return nil, fmt.Errorf("unexpected redis message %T", msg)
		}
	}
}

// Ack ничего не делает: pub/sub не хранит сообщения.
func (t *Redis) Ack(context.Context, *Delivery) error {
	return nil
}

// Publish публикует сообщение в канал.
func (t *Redis) Publish(ctx context.Context, body []byte) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}

	receivers, err := client.Publish(ctx, t.cfg.Name, body).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", t.cfg.Name, err)
	}

	t.logger.Debug("published message", "receivers", receivers)
	return nil
}

// Close отписывается и закрывает клиента.
func (t *Redis) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Redis) closeLocked() error {
	var errs []error

	if t.pubsub != nil {
		if err := t.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub: %w", err))
		}
	}
	if t.client != nil {
		if err := t.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis client: %w", err))
		}
	}

	t.pubsub = nil
	t.client = nil

	return errors.Join(errs...)
}

func (t *Redis) String() string {
	return t.cfg.String()
}
