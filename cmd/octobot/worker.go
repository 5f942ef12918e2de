package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shaiso/Octobot/internal/api"
	"github.com/shaiso/Octobot/internal/builtin"
	"github.com/shaiso/Octobot/internal/config"
	"github.com/shaiso/Octobot/internal/metrics"
	"github.com/shaiso/Octobot/internal/notify"
	"github.com/shaiso/Octobot/internal/scheduler"
	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
	"github.com/shaiso/Octobot/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// runWorker запускает воркеры и блокируется до сигнала завершения.
func runWorker(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, found, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting octobot", "version", version)

	if !found {
		logger.Warn("config file not found, using defaults", "path", configPath)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Report.Cron != "" {
		if err := scheduler.ValidateCronExpr(cfg.Report.Cron); err != nil {
			return err
		}
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Реестр задач
	registry := task.NewRegistry()
	builtin.Register(registry)

	if err := worker.RunHook(ctx, registry, worker.HookStartup, cfg.Hooks.Startup, logger); err != nil {
		logger.Error("startup hook failed", "error", err)
	}

	recorder := metrics.NewRecorder()

	// Уведомления об ошибках
	var sink *notify.Sink
	sinkDone := make(chan struct{})
	var notifier worker.Notifier
	var queueStats api.QueueStats
	var queueFn func() (pending, capacity int)

	if cfg.Email.Enabled {
		sink = notify.NewSink(notify.SinkConfig{
			Deliverer: notify.NewSMTPDeliverer(notify.SMTPConfig{
				Addr:     cfg.Email.Addr(),
				From:     cfg.Email.From,
				Username: cfg.Email.Username,
				Password: cfg.Email.Password,
				SSL:      cfg.Email.SSL,
				Auth:     cfg.Email.Auth,
			}),
			Recipient: cfg.Email.To,
			Logger:    logger,
		})
		notifier, queueStats, queueFn = sink, sink, sink.Stats

		// Доставка не привязана к ctx: уже принятые отчёты дозабираются после Close.
		go func() {
			sink.Run(context.Background())
			close(sinkDone)
		}()
	} else {
		logger.Info("email notifications disabled")
	}

	// Prometheus
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(recorder, queueFn),
	)
	observer := metrics.NewLoopObserver(promReg)

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Registry: registry,
		Recorder: recorder,
		Notifier: notifier,
		Logger:   logger,
	})

	pool := worker.NewPool(worker.PoolConfig{
		Queues:     cfg.Queues,
		Dispatcher: dispatcher,
		Observer:   observer,
		Logger:     logger,
	})
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	// Introspection API
	handler := api.NewHandler(api.Config{
		Metrics:       recorder,
		Tasks:         registry,
		Notifications: queueStats,
		Workers:       pool,
		Gatherer:      promReg,
		Registerer:    promReg,
		Logger:        logger,
	})

	addr := ":" + strconv.Itoa(cfg.Metrics.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if cfg.Report.Cron != "" {
		reporter, err := scheduler.NewReporter(scheduler.ReporterConfig{
			Cron:   cfg.Report.Cron,
			Source: recorder,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		go reporter.Run(ctx)
	}

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := worker.RunHook(shutdownCtx, registry, worker.HookShutdown, cfg.Hooks.Shutdown, logger); err != nil {
		logger.Error("shutdown hook failed", "error", err)
	}

	if sink != nil {
		sink.Close()
		select {
		case <-sinkDone:
		case <-shutdownCtx.Done():
			logger.Warn("notification queue not drained", "pending", sink.Len())
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("octobot stopped")
	return nil
}
