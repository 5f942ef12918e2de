package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Octobot/internal/config"
	"github.com/shaiso/Octobot/internal/mq"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// TransportFactory создаёт транспорт для очереди.
type TransportFactory func(cfg config.QueueConfig, logger *slog.Logger) (mq.Transport, error)

// Pool запускает воркеры для всех очередей.
type Pool struct {
	queues     []config.QueueConfig
	factory    TransportFactory
	dispatcher *Dispatcher
	observer   Observer
	logger     *slog.Logger

	pollTimeout       time.Duration
	reconnectInterval time.Duration

	mu         sync.Mutex
	loops      []*Loop
	started    bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// PoolConfig — конфигурация Pool.
type PoolConfig struct {
	Queues     []config.QueueConfig
	Dispatcher *Dispatcher

	// Factory — фабрика транспортов (default: mq.New).
	Factory TransportFactory

	Observer Observer

	PollTimeout       time.Duration
	ReconnectInterval time.Duration

	Logger *slog.Logger
}

// NewPool создаёт Pool.
func NewPool(cfg PoolConfig) *Pool {
	factory := cfg.Factory
	if factory == nil {
		factory = mq.New
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		queues:            cfg.Queues,
		factory:           factory,
		dispatcher:        cfg.Dispatcher,
		observer:          cfg.Observer,
		logger:            logger,
		pollTimeout:       cfg.PollTimeout,
		reconnectInterval: cfg.ReconnectInterval,
	}
}

// Start создаёт транспорты и запускает по горутине на каждый воркер.
//
// Возвращает ошибку, если для какой-либо очереди не удалось создать
// транспорт; в этом случае ни один воркер не запускается.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolStarted
	}

	var loops []*Loop
	for _, q := range p.queues {
		logger := telemetry.WithQueue(p.logger, q.Protocol, q.Name)

		for i := 0; i < q.Workers; i++ {
			transport, err := p.factory(q, p.logger)
			if err != nil {
				return fmt.Errorf("create transport for %s: %w", q.String(), err)
			}

			loops = append(loops, NewLoop(LoopConfig{
				ID:                i + 1,
				Protocol:          q.Protocol,
				Queue:             q.Name,
				Transport:         transport,
				Dispatcher:        p.dispatcher,
				Observer:          p.observer,
				PollTimeout:       p.pollTimeout,
				ReconnectInterval: p.reconnectInterval,
				Logger:            logger,
			}))
		}

		logger.Info("starting queue workers", "workers", q.Workers, "priority", q.Priority)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancelFunc = cancel
	p.loops = loops
	p.started = true

	for _, loop := range loops {
		p.wg.Add(1)
		go func(l *Loop) {
			defer p.wg.Done()
			if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("worker stopped", "error", err)
			}
		}(loop)
	}

	p.logger.Info("worker pool started", "queues", len(p.queues), "workers", len(loops))
	return nil
}

// Stop останавливает все воркеры и ждёт их завершения.
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel := p.cancelFunc
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	p.logger.Info("stopping worker pool...")
	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Wait ждёт завершения всех воркеров.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size возвращает число воркеров.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loops)
}

// States возвращает число воркеров в каждом состоянии.
func (p *Pool) States() map[State]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	states := make(map[State]int)
	for _, l := range p.loops {
		states[l.State()]++
	}
	return states
}
