package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// recordingDeliverer запоминает доставленные тела писем.
type recordingDeliverer struct {
	mu     sync.Mutex
	bodies []string
	err    error
	calls  chan struct{}
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{calls: make(chan struct{}, 1000)}
}

func (d *recordingDeliverer) Deliver(_ context.Context, _, _, body string) error {
	d.mu.Lock()
	d.bodies = append(d.bodies, body)
	d.mu.Unlock()
	d.calls <- struct{}{}
	return d.err
}

func (d *recordingDeliverer) delivered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.bodies...)
}

func (d *recordingDeliverer) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-d.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d/%d", i+1, n)
		}
	}
}

func TestSink_EnqueueBlocksWhenFull(t *testing.T) {
	sink := NewSink(SinkConfig{Deliverer: newRecordingDeliverer(), Logger: telemetry.Discard()})

	// Потребитель не запущен: очередь заполняется до Capacity.
	for i := 0; i < Capacity; i++ {
		if err := sink.Enqueue(context.Background(), Report{Task: "X"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if sink.RemainingCapacity() != 0 || sink.Len() != Capacity {
		t.Fatalf("expected full queue, len=%d remaining=%d", sink.Len(), sink.RemainingCapacity())
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- sink.Enqueue(context.Background(), Report{Task: "overflow"})
	}()

	select {
	case err := <-blocked:
		t.Fatalf("enqueue should block on full queue, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Освобождаем одно место вручную — producer должен продолжить.
	<-sink.queue

	select {
	case err := <-blocked:
		if err != nil {
			t.Errorf("unexpected error after drain: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue should resume once a slot is free")
	}

	if sink.Len() != Capacity {
		t.Errorf("expected %d pending reports, got %d", Capacity, sink.Len())
	}
}

func TestSink_EnqueueContextCanceled(t *testing.T) {
	sink := NewSink(SinkConfig{Deliverer: newRecordingDeliverer(), Capacity: 1, Logger: telemetry.Discard()})

	if err := sink.Enqueue(context.Background(), Report{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := sink.Enqueue(ctx, Report{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSink_EnqueueCanceledWithFreeSlots(t *testing.T) {
	sink := NewSink(SinkConfig{Deliverer: newRecordingDeliverer(), Logger: telemetry.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		if err := sink.Enqueue(ctx, Report{Task: "X"}); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if sink.Len() != 0 {
		t.Errorf("cancelled enqueue should not queue reports, got %d", sink.Len())
	}
}

func TestSink_DeliversInOrder(t *testing.T) {
	d := newRecordingDeliverer()
	sink := NewSink(SinkConfig{Deliverer: d, Recipient: "ops@example.com", Logger: telemetry.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	for _, name := range []string{"a", "b", "c"} {
		if err := sink.Enqueue(ctx, Report{Task: name}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	d.wait(t, 3)

	got := d.delivered()
	for i, name := range []string{"a", "b", "c"} {
		if !strings.HasPrefix(got[i], "Error running task: "+name+".") {
			t.Errorf("delivery %d: expected task %s, got %q", i, name, got[i])
		}
	}
}

func TestSink_DeliveryErrorNotRetried(t *testing.T) {
	d := newRecordingDeliverer()
	d.err = errors.New("smtp down")
	sink := NewSink(SinkConfig{Deliverer: d, Logger: telemetry.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	if err := sink.Enqueue(ctx, Report{Task: "X"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.wait(t, 1)

	select {
	case <-d.calls:
		t.Error("failed report should not be redelivered")
	case <-time.After(50 * time.Millisecond):
	}
	if sink.Len() != 0 {
		t.Error("failed report should not be requeued")
	}
}

func TestSink_Close(t *testing.T) {
	d := newRecordingDeliverer()
	sink := NewSink(SinkConfig{Deliverer: d, Logger: telemetry.Discard()})

	if err := sink.Enqueue(context.Background(), Report{Task: "pending"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	sink.Close()
	sink.Close()

	if err := sink.Enqueue(context.Background(), Report{}); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("expected ErrSinkClosed, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		sink.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run should return after Close")
	}

	if len(d.delivered()) != 1 {
		t.Errorf("already accepted report should be delivered, got %d", len(d.delivered()))
	}
}

func TestReport_Format(t *testing.T) {
	cause := errors.New("division by zero")
	report := Report{
		Task:     "X",
		Retries:  2,
		Attempts: 3,
		Raw:      `{"task":"X","retries":2}`,
		Err:      &task.ExecutionError{Task: "X", Cause: cause},
	}

	text := report.Format()

	for _, want := range []string{
		"Error running task: X.",
		"Attempted executing 2 times",
		"(3 attempts made)",
		`{"task":"X","retries":2}`,
		"division by zero",
		"caused by: task execution failed",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report should contain %q:\n%s", want, text)
		}
	}
}

func TestTrace(t *testing.T) {
	if Trace(nil) != "(none)" {
		t.Errorf("unexpected trace for nil: %q", Trace(nil))
	}

	panicErr := &task.ExecutionError{Task: "P", Cause: errors.New("panic: x"), Stack: []byte("goroutine 1 [running]:")}
	if !strings.Contains(Trace(panicErr), "goroutine 1 [running]:") {
		t.Error("trace should include panic stack")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("a@x", "b@y", Subject, "line1\nline2"))

	for _, want := range []string{"From: a@x\r\n", "To: b@y\r\n", "Subject: Task Error Notification\r\n", "\r\n\r\nline1\r\nline2\r\n"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message should contain %q, got %q", want, msg)
		}
	}
}
