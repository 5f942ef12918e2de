package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/shaiso/Octobot/internal/mq"
)

// State — состояние Loop.
type State int32

// Состояния Loop.
const (
	StateConnecting State = iota
	StateListening
	StateDispatching
	StateAcknowledging
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateDispatching:
		return "dispatching"
	case StateAcknowledging:
		return "acknowledging"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Observer получает события транспорта.
type Observer interface {
	Reconnect(protocol, queue string)
	AckFailed(protocol, queue string)
	Malformed(protocol, queue string)
}

type nopObserver struct{}

func (nopObserver) Reconnect(string, string) {}
func (nopObserver) AckFailed(string, string) {}
func (nopObserver) Malformed(string, string) {}

// Loop — цикл одного воркера над одним транспортом.
type Loop struct {
	id         int
	protocol   string
	queue      string
	transport  mq.Transport
	dispatcher *Dispatcher
	observer   Observer
	logger     *slog.Logger

	pollTimeout       time.Duration
	reconnectInterval time.Duration

	state     atomic.Int32
	processed atomic.Int64
}

// LoopConfig — конфигурация Loop.
type LoopConfig struct {
	ID         int
	Protocol   string
	Queue      string
	Transport  mq.Transport
	Dispatcher *Dispatcher

	// Observer — опционально.
	Observer Observer

	// PollTimeout — таймаут одного Receive (default: 1s).
	PollTimeout time.Duration

	// ReconnectInterval — пауза между попытками подключения (default: 5s).
	ReconnectInterval time.Duration

	Logger *slog.Logger
}

// NewLoop создаёт Loop.
func NewLoop(cfg LoopConfig) *Loop {
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = mq.DefaultPollTimeout
	}

	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		id:                cfg.ID,
		protocol:          cfg.Protocol,
		queue:             cfg.Queue,
		transport:         cfg.Transport,
		dispatcher:        cfg.Dispatcher,
		observer:          observer,
		logger:            logger.With("worker", cfg.ID),
		pollTimeout:       pollTimeout,
		reconnectInterval: cfg.ReconnectInterval,
	}
}

// State возвращает текущее состояние.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Processed возвращает число подтверждённых сообщений.
func (l *Loop) Processed() int64 {
	return l.processed.Load()
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run крутит цикл до отмены ctx и возвращает ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.transport.Close(); err != nil {
			l.logger.Warn("close transport", "error", err)
		}
		l.setState(StateStopped)
	}()

	for {
		l.setState(StateConnecting)
		if err := mq.ConnectWithRetry(ctx, l.transport, l.logger, l.reconnectInterval); err != nil {
			return err
		}

		l.logger.Info("worker listening", "transport", l.transport.String())

		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Warn("transport failure, reconnecting", "error", err)
		l.observer.Reconnect(l.protocol, l.queue)
	}
}

// listen обрабатывает сообщения, пока транспорт исправен.
// Паника транспорта превращается в ошибку и ведёт к переподключению.
func (l *Loop) listen(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrLoopPanic, rec, debug.Stack())
		}
	}()

	for {
		l.setState(StateListening)
		d, err := l.transport.Receive(ctx, l.pollTimeout)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReceive, err)
		}
		if d == nil {
			continue
		}

		l.setState(StateDispatching)
		outcome, ok := l.dispatcher.Dispatch(ctx, d.Body)
		if !ok {
			l.observer.Malformed(l.protocol, l.queue)
		}
		if outcome.Interrupted {
			// без ack брокер вернёт сообщение в очередь
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}

		l.setState(StateAcknowledging)
		if err := l.transport.Ack(ctx, d); err != nil {
			l.observer.AckFailed(l.protocol, l.queue)
			return fmt.Errorf("%w: %w", ErrAck, err)
		}
		l.processed.Add(1)
	}
}
