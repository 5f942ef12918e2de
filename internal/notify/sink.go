package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Capacity — ёмкость очереди отчётов.
const Capacity = 100

// Deliverer — внешний сервис доставки (например, SMTP).
type Deliverer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// DelivererFunc — адаптер функции к Deliverer.
type DelivererFunc func(ctx context.Context, to, subject, body string) error

// Deliver вызывает f.
func (f DelivererFunc) Deliver(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// Sink — ограниченная очередь отчётов с одним потребителем.
type Sink struct {
	queue     chan string
	deliverer Deliverer
	recipient string
	logger    *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// SinkConfig — конфигурация Sink.
type SinkConfig struct {
	// Deliverer — сервис доставки (обязателен).
	Deliverer Deliverer

	// Recipient — адрес получателя.
	Recipient string

	// Capacity — ёмкость очереди (default: 100).
	Capacity int

	Logger *slog.Logger
}

// NewSink создаёт Sink. Потребитель запускается через Run.
func NewSink(cfg SinkConfig) *Sink {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = Capacity
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sink{
		queue:     make(chan string, capacity),
		deliverer: cfg.Deliverer,
		recipient: cfg.Recipient,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Enqueue ставит отчёт в очередь, блокируясь, пока нет места.
//
// Возвращает ctx.Err() при отмене контекста и ErrSinkClosed после Close.
func (s *Sink) Enqueue(ctx context.Context, report Report) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	body := report.Format()

	select {
	case s.queue <- body:
		return nil
	case <-s.done:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len возвращает число отчётов, ожидающих доставки.
func (s *Sink) Len() int {
	return len(s.queue)
}

// Cap возвращает ёмкость очереди.
func (s *Sink) Cap() int {
	return cap(s.queue)
}

// RemainingCapacity возвращает число свободных мест.
func (s *Sink) RemainingCapacity() int {
	return cap(s.queue) - len(s.queue)
}

// Stats возвращает (ожидающие, ёмкость).
func (s *Sink) Stats() (pending, capacity int) {
	return s.Len(), s.Cap()
}

// Run доставляет отчёты в порядке поступления, пока не отменён ctx
// или не вызван Close. Уже принятые отчёты после Close дозабираются.
func (s *Sink) Run(ctx context.Context) {
	s.logger.Info("notification queue started", "capacity", s.Cap(), "recipient", s.recipient)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("notification queue stopped", "pending", s.Len())
			return
		case body := <-s.queue:
			s.deliver(ctx, body)
		case <-s.done:
			s.drain(ctx)
			s.logger.Info("notification queue stopped")
			return
		}
	}
}

func (s *Sink) drain(ctx context.Context) {
	for {
		select {
		case body := <-s.queue:
			s.deliver(ctx, body)
		default:
			return
		}
	}
}

func (s *Sink) deliver(ctx context.Context, body string) {
	s.logger.Info("sending error notification", "recipient", s.recipient)

	if err := s.deliverer.Deliver(ctx, s.recipient, Subject, body); err != nil {
		s.logger.Error("error delivering notification",
			"recipient", s.recipient,
			"error", fmt.Errorf("%w: %w", ErrDelivery, err),
		)
		return
	}

	s.logger.Info("sent error notification", "recipient", s.recipient)
}

// Close прекращает приём отчётов.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
