package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Octobot/internal/metrics"
)

// Snapshotter отдаёт снимок метрик.
type Snapshotter interface {
	Snapshot() metrics.Snapshot
}

// Reporter логирует сводку метрик по расписанию.
type Reporter struct {
	schedule cron.Schedule
	source   Snapshotter
	logger   *slog.Logger
	now      func() time.Time

	last totals
}

// ReporterConfig — конфигурация Reporter.
type ReporterConfig struct {
	// Cron — расписание отчётов (обязательно).
	Cron string

	// Source — источник метрик (обязателен).
	Source Snapshotter

	Logger *slog.Logger
}

// totals — суммарные счётчики по всем задачам.
type totals struct {
	successes int64
	failures  int64
	retries   int64
}

// NewReporter создаёт Reporter.
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	schedule, err := ParseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reporter{
		schedule: schedule,
		source:   cfg.Source,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run пишет отчёты до отмены ctx.
func (r *Reporter) Run(ctx context.Context) {
	r.logger.Info("metrics reporter started", "next_report", r.schedule.Next(r.now()))

	for {
		next := r.schedule.Next(r.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("metrics reporter stopped")
			return
		case <-timer.C:
			r.Report()
		}
	}
}

// Report пишет один отчёт: итог в INFO, задачи в DEBUG.
func (r *Reporter) Report() {
	snap := r.source.Snapshot()

	var cur totals
	for _, name := range snap.Order {
		t := snap.Tasks[name]
		cur.successes += t.Successes
		cur.failures += t.Failures
		cur.retries += t.Retries

		r.logger.Debug("task metrics",
			"task", name,
			"successes", t.Successes,
			"failures", t.Failures,
			"retries", t.Retries,
			"average_time_ms", t.AverageTime,
		)
	}

	r.logger.Info("metrics report",
		"tasks_instrumented", snap.Instrumented,
		"alive_since", snap.AliveSince,
		"successes", cur.successes,
		"failures", cur.failures,
		"retries", cur.retries,
		"successes_delta", cur.successes-r.last.successes,
		"failures_delta", cur.failures-r.last.failures,
	)

	r.last = cur
}
