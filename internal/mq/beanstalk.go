package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/beanstalkd/go-beanstalk"

	"github.com/shaiso/Octobot/internal/config"
)

// Параметры публикации в beanstalkd.
const (
	beanstalkDialTimeout = 10 * time.Second
	beanstalkPutTTR      = 120 * time.Second
)

// Beanstalk — транспорт beanstalkd. Очередь соответствует tube.
type Beanstalk struct {
	cfg    config.QueueConfig
	logger *slog.Logger

	mu    sync.Mutex
	conn  *beanstalk.Conn
	watch *beanstalk.TubeSet
	use   *beanstalk.Tube
}

// NewBeanstalk создаёт beanstalk транспорт.
func NewBeanstalk(cfg config.QueueConfig, logger *slog.Logger) *Beanstalk {
	return &Beanstalk{cfg: cfg, logger: logger}
}

// Connect подключается и начинает слушать tube.
func (t *Beanstalk) Connect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()

	conn, err := beanstalk.DialTimeout("tcp", t.cfg.Addr(), beanstalkDialTimeout)
	if err != nil {
		return fmt.Errorf("dial beanstalk %s: %w", t.cfg.Addr(), err)
	}

	t.conn = conn
	t.watch = beanstalk.NewTubeSet(conn, t.cfg.Name)
	t.use = beanstalk.NewTube(conn, t.cfg.Name)

	t.logger.Info("connected to beanstalkd", "addr", t.cfg.Addr(), "tube", t.cfg.Name)
	return nil
}

// Receive резервирует следующую задачу.
func (t *Beanstalk) Receive(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.watch == nil {
		return nil, ErrNotConnected
	}

	id, body, err := t.watch.Reserve(timeout)
	if err != nil {
		if isBeanstalkTimeout(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reserve from %s: %w", t.cfg.Name, err)
	}

	return &Delivery{Body: body, Token: id}, nil
}

// isBeanstalkTimeout — reserve вернулся без задачи.
func isBeanstalkTimeout(err error) bool {
	var connErr beanstalk.ConnError
	if errors.As(err, &connErr) {
		return connErr.Err == beanstalk.ErrTimeout || connErr.Err == beanstalk.ErrDeadline
	}
	return false
}

// Ack удаляет задачу из beanstalkd.
func (t *Beanstalk) Ack(_ context.Context, d *Delivery) error {
	id, ok := d.Token.(uint64)
	if !ok {
		return ErrInvalidDelivery
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.Delete(id); err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	return nil
}

// Publish кладёт задачу в tube с приоритетом очереди.
func (t *Beanstalk) Publish(_ context.Context, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.use == nil {
		return ErrNotConnected
	}

	id, err := t.use.Put(body, beanstalkPriority(t.cfg.Priority), 0, beanstalkPutTTR)
	if err != nil {
		return fmt.Errorf("put to %s: %w", t.cfg.Name, err)
	}

	t.logger.Debug("published job", "job_id", id)
	return nil
}

// beanstalkPriority переводит приоритет 1..10 (10 — высший) в приоритет
// beanstalkd, где меньшее значение обслуживается раньше.
func beanstalkPriority(priority int) uint32 {
	if priority < 1 {
		priority = config.DefaultPriority
	}
	if priority > 10 {
		priority = 10
	}
	return uint32(10-priority) * 1024
}

// Close закрывает соединение.
func (t *Beanstalk) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Beanstalk) closeLocked() error {
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	t.watch = nil
	t.use = nil

	if err != nil {
		return fmt.Errorf("close beanstalk connection: %w", err)
	}
	return nil
}

func (t *Beanstalk) String() string {
	return t.cfg.String()
}
