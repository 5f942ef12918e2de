package api

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/Octobot/internal/metrics"
	"github.com/shaiso/Octobot/internal/worker"
)

// Snapshotter отдаёт снимок метрик задач.
type Snapshotter interface {
	Snapshot() metrics.Snapshot
}

// TaskLister перечисляет зарегистрированные задачи.
type TaskLister interface {
	Names() []string
}

// QueueStats — состояние очереди уведомлений.
type QueueStats interface {
	Stats() (pending, capacity int)
}

// WorkerStats — состояние пула воркеров.
type WorkerStats interface {
	Size() int
	States() map[worker.State]int
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	metrics       Snapshotter
	tasks         TaskLister
	notifications QueueStats
	workers       WorkerStats
	gatherer      prometheus.Gatherer
	requests      *prometheus.CounterVec
	logger        *slog.Logger
	startedAt     time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Metrics — источник снимка (обязателен).
	Metrics Snapshotter

	Tasks TaskLister

	// Notifications — nil, если email-уведомления выключены.
	Notifications QueueStats

	Workers WorkerStats

	// Gatherer — источник /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	// Registerer — куда регистрировать счётчик запросов API. nil — без учёта.
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		metrics:       cfg.Metrics,
		tasks:         cfg.Tasks,
		notifications: cfg.Notifications,
		workers:       cfg.Workers,
		gatherer:      gatherer,
		requests:      newRequestCounter(cfg.Registerer),
		logger:        logger,
		startedAt:     time.Now(),
	}
}
