package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shaiso/Octobot/internal/notify"
	"github.com/shaiso/Octobot/internal/retry"
	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// Recorder принимает итог выполнения сообщения.
type Recorder interface {
	Record(task string, duration time.Duration, succeeded bool, retriesUsed int)
}

// Notifier принимает отчёт о задаче, исчерпавшей попытки.
type Notifier interface {
	Enqueue(ctx context.Context, report notify.Report) error
}

// Outcome — итог выполнения одного сообщения.
type Outcome struct {
	Task      string
	Duration  time.Duration
	Succeeded bool
	Attempts  int

	// Err — ошибка последней попытки.
	Err error

	// Interrupted — выполнение прервано остановкой: метрики и отчёт не
	// записаны, сообщение нельзя подтверждать.
	Interrupted bool
}

// RetriesUsed возвращает число повторов сверх первой попытки.
func (o Outcome) RetriesUsed() int {
	return max(o.Attempts-1, 0)
}

// Dispatcher выполняет сообщения по политике повторов.
//
// Безопасен для одновременного использования всеми воркерами.
type Dispatcher struct {
	registry *task.Registry
	recorder Recorder
	notifier Notifier
	logger   *slog.Logger
}

// DispatcherConfig — конфигурация Dispatcher.
type DispatcherConfig struct {
	// Registry — реестр обработчиков (обязателен).
	Registry *task.Registry

	// Recorder — получатель метрик (обязателен).
	Recorder Recorder

	// Notifier — очередь отчётов об ошибках. nil — уведомления выключены.
	Notifier Notifier

	Logger *slog.Logger
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry: cfg.Registry,
		recorder: cfg.Recorder,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Dispatch разбирает и выполняет сообщение.
//
// ok=false означает, что сообщение нечитаемое: оно отброшено, метрики
// не изменились.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) (Outcome, bool) {
	msg, err := task.Parse(raw)
	if err != nil {
		d.logger.Error("dropping malformed message", "error", err, "body", string(raw))
		return Outcome{}, false
	}

	logger := telemetry.WithTask(d.logger, msg.Task)
	ctx = telemetry.WithLogger(ctx, logger)

	policy := retry.New(msg.Retries)

	start := time.Now()
	res := policy.Run(ctx, func(ctx context.Context, attempt int) error {
		err := d.attempt(ctx, msg)
		if err != nil {
			logger.Warn("task attempt failed",
				"attempt", attempt+1,
				"max_attempts", policy.MaxAttempts(),
				"failure", failureClass(err),
				"error", err,
			)
		}
		return err
	})
	elapsed := time.Since(start)

	outcome := Outcome{
		Task:      msg.Task,
		Duration:  elapsed,
		Succeeded: res.Succeeded(),
		Attempts:  res.Attempts,
		Err:       res.Err,
	}

	if res.Interrupted {
		outcome.Interrupted = true
		logger.Warn("task interrupted by shutdown",
			"attempts", outcome.Attempts,
			"max_attempts", policy.MaxAttempts(),
			"error", res.Err,
		)
		return outcome, true
	}

	if outcome.Succeeded {
		logger.Debug("task succeeded", "attempts", outcome.Attempts, "duration", elapsed)
	} else {
		logger.Error("task failed",
			"attempts", outcome.Attempts,
			"retries", msg.Retries,
			"duration", elapsed,
			"error", res.Err,
		)
		d.report(ctx, msg, outcome)
	}

	d.recorder.Record(outcome.Task, outcome.Duration, outcome.Succeeded, outcome.RetriesUsed())

	return outcome, true
}

// attempt — одна попытка: resolve и вызов обработчика.
func (d *Dispatcher) attempt(ctx context.Context, msg *task.Message) error {
	h, err := d.registry.Resolve(msg.Task)
	if err != nil {
		return err
	}
	return task.Invoke(ctx, h, msg)
}

// report ставит отчёт в очередь уведомлений. Может блокироваться.
func (d *Dispatcher) report(ctx context.Context, msg *task.Message, outcome Outcome) {
	if d.notifier == nil {
		return
	}

	err := d.notifier.Enqueue(ctx, notify.Report{
		Task:     msg.Task,
		Retries:  msg.Retries,
		Attempts: outcome.Attempts,
		Raw:      msg.Raw,
		Err:      outcome.Err,
	})
	if err != nil {
		d.logger.Error("failed to enqueue failure report", "task", msg.Task, "error", err)
	}
}

// failureClass возвращает вид ошибки для логов.
func failureClass(err error) string {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, task.ErrHandlerContract):
		return "handler_contract_violation"
	case errors.Is(err, task.ErrTaskExecution):
		return "execution_error"
	default:
		return "unknown"
	}
}
