package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector экспортирует Snapshot в формате Prometheus.
//
// Значения считаются в момент scrape; собственного состояния нет.
type Collector struct {
	recorder *Recorder
	queue    func() (pending, capacity int)

	successes    *prometheus.Desc
	failures     *prometheus.Desc
	retries      *prometheus.Desc
	averageTime  *prometheus.Desc
	instrumented *prometheus.Desc
	uptime       *prometheus.Desc
	pending      *prometheus.Desc
	capacity     *prometheus.Desc
}

// NewCollector создаёт Collector над recorder.
// queue может быть nil, если очередь уведомлений выключена.
func NewCollector(recorder *Recorder, queue func() (pending, capacity int)) *Collector {
	return &Collector{
		recorder: recorder,
		queue:    queue,
		successes: prometheus.NewDesc("octobot_task_successes_total",
			"Total successful task executions", []string{"task"}, nil),
		failures: prometheus.NewDesc("octobot_task_failures_total",
			"Total failed task executions", []string{"task"}, nil),
		retries: prometheus.NewDesc("octobot_task_retries_total",
			"Total task retries", []string{"task"}, nil),
		averageTime: prometheus.NewDesc("octobot_task_average_time_milliseconds",
			"Mean execution time over the recent sample window", []string{"task"}, nil),
		instrumented: prometheus.NewDesc("octobot_tasks_instrumented",
			"Number of distinct tasks seen by this process", nil, nil),
		uptime: prometheus.NewDesc("octobot_alive_since_seconds",
			"Process uptime in seconds", nil, nil),
		pending: prometheus.NewDesc("octobot_notifications_pending",
			"Failure notifications waiting for delivery", nil, nil),
		capacity: prometheus.NewDesc("octobot_notifications_capacity",
			"Capacity of the failure notification queue", nil, nil),
	}
}

// Describe реализует prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.successes
	ch <- c.failures
	ch <- c.retries
	ch <- c.averageTime
	ch <- c.instrumented
	ch <- c.uptime
	ch <- c.pending
	ch <- c.capacity
}

// Collect реализует prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.recorder.Snapshot()

	for _, name := range snap.Order {
		t := snap.Tasks[name]
		ch <- prometheus.MustNewConstMetric(c.successes, prometheus.CounterValue, float64(t.Successes), name)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(t.Failures), name)
		ch <- prometheus.MustNewConstMetric(c.retries, prometheus.CounterValue, float64(t.Retries), name)
		ch <- prometheus.MustNewConstMetric(c.averageTime, prometheus.GaugeValue, t.AverageTime, name)
	}

	ch <- prometheus.MustNewConstMetric(c.instrumented, prometheus.GaugeValue, float64(snap.Instrumented))
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, float64(snap.AliveSince))

	if c.queue != nil {
		pending, capacity := c.queue()
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(pending))
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(capacity))
	}
}

// LoopObserver считает события транспорта в consumer loop.
type LoopObserver struct {
	reconnects  *prometheus.CounterVec
	ackFailures *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewLoopObserver регистрирует счётчики в reg.
func NewLoopObserver(reg prometheus.Registerer) *LoopObserver {
	o := &LoopObserver{
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octobot_transport_reconnects_total",
			Help: "Reconnect cycles started by consumer loops",
		}, []string{"protocol", "queue"}),
		ackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octobot_transport_ack_failures_total",
			Help: "Messages whose acknowledgment failed",
		}, []string{"protocol", "queue"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octobot_messages_malformed_total",
			Help: "Messages dropped because they could not be parsed",
		}, []string{"protocol", "queue"}),
	}

	reg.MustRegister(o.reconnects, o.ackFailures, o.dropped)
	return o
}

// Reconnect учитывает переход consumer loop в состояние Connecting после ошибки.
func (o *LoopObserver) Reconnect(protocol, queue string) {
	o.reconnects.WithLabelValues(protocol, queue).Inc()
}

// AckFailed учитывает неудачное подтверждение сообщения.
func (o *LoopObserver) AckFailed(protocol, queue string) {
	o.ackFailures.WithLabelValues(protocol, queue).Inc()
}

// Malformed учитывает отброшенное нечитаемое сообщение.
func (o *LoopObserver) Malformed(protocol, queue string) {
	o.dropped.WithLabelValues(protocol, queue).Inc()
}
