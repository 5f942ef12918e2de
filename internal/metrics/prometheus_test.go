package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	r := NewRecorder()
	r.Record("X", time.Millisecond, false, 2)
	r.Record("Y", time.Millisecond, true, 0)

	c := NewCollector(r, func() (int, int) { return 3, 100 })

	expected := `
# HELP octobot_task_failures_total Total failed task executions
# TYPE octobot_task_failures_total counter
octobot_task_failures_total{task="X"} 1
octobot_task_failures_total{task="Y"} 0
# HELP octobot_task_retries_total Total task retries
# TYPE octobot_task_retries_total counter
octobot_task_retries_total{task="X"} 2
octobot_task_retries_total{task="Y"} 0
# HELP octobot_notifications_pending Failure notifications waiting for delivery
# TYPE octobot_notifications_pending gauge
octobot_notifications_pending 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"octobot_task_failures_total",
		"octobot_task_retries_total",
		"octobot_notifications_pending",
	)
	if err != nil {
		t.Error(err)
	}
}

func TestCollector_NoQueue(t *testing.T) {
	c := NewCollector(NewRecorder(), nil)

	// instrumented + uptime
	if n := testutil.CollectAndCount(c); n != 2 {
		t.Errorf("expected 2 metrics, got %d", n)
	}
}

func TestLoopObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewLoopObserver(reg)

	o.Reconnect("amqp", "tasks")
	o.Reconnect("amqp", "tasks")
	o.AckFailed("beanstalk", "jobs")
	o.Malformed("redis", "events")

	if v := testutil.ToFloat64(o.reconnects.WithLabelValues("amqp", "tasks")); v != 2 {
		t.Errorf("expected 2 reconnects, got %v", v)
	}
	if v := testutil.ToFloat64(o.ackFailures.WithLabelValues("beanstalk", "jobs")); v != 1 {
		t.Errorf("expected 1 ack failure, got %v", v)
	}
	if v := testutil.ToFloat64(o.dropped.WithLabelValues("redis", "events")); v != 1 {
		t.Errorf("expected 1 malformed message, got %v", v)
	}
}
