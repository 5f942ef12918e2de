package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Octobot/internal/config"
	"github.com/shaiso/Octobot/internal/mq"
	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// fakeTransport — транспорт в памяти.
type fakeTransport struct {
	inbox       chan *mq.Delivery
	receiveErrs chan error

	mu          sync.Mutex
	connects    int
	connectErrs int
	ackErrs     int
	acked       []string
	closed      int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbox:       make(chan *mq.Delivery, 16),
		receiveErrs: make(chan error, 4),
	}
}

func (f *fakeTransport) push(body string) {
	f.inbox <- &mq.Delivery{Body: []byte(body), Token: body}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErrs > 0 {
		f.connectErrs--
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeTransport) Receive(ctx context.Context, timeout time.Duration) (*mq.Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-f.receiveErrs:
		return nil, err
	case d := <-f.inbox:
		return d, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

func (f *fakeTransport) Ack(_ context.Context, d *mq.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErrs > 0 {
		f.ackErrs--
		return errors.New("channel closed")
	}
	f.acked = append(f.acked, d.Token.(string))
	return nil
}

func (f *fakeTransport) Publish(_ context.Context, body []byte) error {
	f.push(string(body))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) String() string { return "fake/tasks@localhost:0" }

func (f *fakeTransport) stats() (connects int, acked []string, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, append([]string(nil), f.acked...), f.closed
}

// countingObserver считает события транспорта.
type countingObserver struct {
	mu         sync.Mutex
	reconnects int
	ackFails   int
	malformed  int
}

func (o *countingObserver) Reconnect(string, string) { o.mu.Lock(); o.reconnects++; o.mu.Unlock() }
func (o *countingObserver) AckFailed(string, string) { o.mu.Lock(); o.ackFails++; o.mu.Unlock() }
func (o *countingObserver) Malformed(string, string) { o.mu.Lock(); o.malformed++; o.mu.Unlock() }

func (o *countingObserver) counts() (reconnects, ackFails, malformed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reconnects, o.ackFails, o.malformed
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startLoop(t *testing.T, env *dispatchEnv, tr *fakeTransport, obs *countingObserver) (*Loop, func()) {
	t.Helper()

	loop := NewLoop(LoopConfig{
		ID:                1,
		Protocol:          "fake",
		Queue:             "tasks",
		Transport:         tr,
		Dispatcher:        env.dispatcher,
		Observer:          obs,
		PollTimeout:       10 * time.Millisecond,
		ReconnectInterval: time.Millisecond,
		Logger:            telemetry.Discard(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	return loop, func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not stop")
		}
	}
}

func TestLoop_ProcessesAndAcks(t *testing.T) {
	env := newDispatchEnv()
	env.registry.Register("Y", func(*task.Message) {})

	tr := newFakeTransport()
	obs := &countingObserver{}
	loop, stop := startLoop(t, env, tr, obs)

	tr.push(`{"task":"Y"}`)
	tr.push(`garbage`)
	tr.push(`{"task":"Y"}`)

	waitFor(t, "three acks", func() bool { _, acked, _ := tr.stats(); return len(acked) == 3 })
	stop()

	_, acked, closed := tr.stats()
	if acked[1] != "garbage" {
		t.Errorf("malformed message should still be acknowledged, got %v", acked)
	}
	if closed == 0 {
		t.Error("transport should be closed on stop")
	}
	if loop.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", loop.State())
	}
	if loop.Processed() != 3 {
		t.Errorf("expected 3 processed, got %d", loop.Processed())
	}

	if _, _, malformed := obs.counts(); malformed != 1 {
		t.Errorf("expected 1 malformed, got %d", malformed)
	}
	if got := env.recorder.Snapshot().Tasks["Y"]; got.Successes != 2 {
		t.Errorf("expected 2 successes, got %+v", got)
	}
}

func TestLoop_ReceiveErrorReconnects(t *testing.T) {
	env := newDispatchEnv()
	env.registry.Register("Y", func(*task.Message) {})

	tr := newFakeTransport()
	tr.connectErrs = 2
	obs := &countingObserver{}
	_, stop := startLoop(t, env, tr, obs)

	waitFor(t, "initial connect", func() bool { c, _, _ := tr.stats(); return c == 3 })

	tr.receiveErrs <- errors.New("socket reset")
	waitFor(t, "reconnect", func() bool { c, _, _ := tr.stats(); return c == 4 })

	tr.push(`{"task":"Y"}`)
	waitFor(t, "ack after reconnect", func() bool { _, acked, _ := tr.stats(); return len(acked) == 1 })
	stop()

	if reconnects, _, _ := obs.counts(); reconnects != 1 {
		t.Errorf("expected 1 reconnect, got %d", reconnects)
	}
}

func TestLoop_AckErrorReconnects(t *testing.T) {
	env := newDispatchEnv()

	calls := 0
	env.registry.Register("Y", func(*task.Message) { calls++ })

	tr := newFakeTransport()
	tr.ackErrs = 1
	obs := &countingObserver{}
	_, stop := startLoop(t, env, tr, obs)

	tr.push(`{"task":"Y"}`)
	waitFor(t, "reconnect after ack failure", func() bool { c, _, _ := tr.stats(); return c == 2 })

	// Брокер доставит сообщение повторно.
	tr.push(`{"task":"Y"}`)
	waitFor(t, "ack", func() bool { _, acked, _ := tr.stats(); return len(acked) == 1 })
	stop()

	reconnects, ackFails, _ := obs.counts()
	if reconnects != 1 || ackFails != 1 {
		t.Errorf("expected 1 reconnect and 1 ack failure, got %d/%d", reconnects, ackFails)
	}
	if calls != 2 {
		t.Errorf("redelivered message should run again, got %d calls", calls)
	}
}

func TestLoop_EndToEndRetries(t *testing.T) {
	env := newDispatchEnv()

	calls := 0
	env.registry.Register("X", func(*task.Message) error {
		calls++
		return errors.New("always")
	})

	tr := newFakeTransport()
	_, stop := startLoop(t, env, tr, &countingObserver{})

	if err := tr.Publish(context.Background(), []byte(`{"task":"X","retries":2}`)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "ack", func() bool { _, acked, _ := tr.stats(); return len(acked) == 1 })
	stop()

	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	if n := len(env.notifier.Reports()); n != 1 {
		t.Errorf("expected 1 notification, got %d", n)
	}
}

func TestState_String(t *testing.T) {
	if StateAcknowledging.String() != "acknowledging" || State(42).String() != "state(42)" {
		t.Error("unexpected state names")
	}
}

func TestPool_StartsWorkersPerQueue(t *testing.T) {
	env := newDispatchEnv()
	env.registry.Register("Y", func(*task.Message) {})

	var mu sync.Mutex
	transports := map[string][]*fakeTransport{}

	pool := NewPool(PoolConfig{
		Queues: []config.QueueConfig{
			{Protocol: "amqp", Name: "a", Workers: 2, Priority: 5},
			{Protocol: "redis", Name: "b", Workers: 3, Priority: 9},
		},
		Dispatcher: env.dispatcher,
		Factory: func(q config.QueueConfig, _ *slog.Logger) (mq.Transport, error) {
			mu.Lock()
			defer mu.Unlock()
			tr := newFakeTransport()
			transports[q.Name] = append(transports[q.Name], tr)
			return tr, nil
		},
		PollTimeout: 10 * time.Millisecond,
		Logger:      telemetry.Discard(),
	})

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pool.Start(context.Background()); !errors.Is(err, ErrPoolStarted) {
		t.Errorf("expected ErrPoolStarted, got %v", err)
	}

	if pool.Size() != 5 {
		t.Errorf("expected 5 workers, got %d", pool.Size())
	}
	mu.Lock()
	if len(transports["a"]) != 2 || len(transports["b"]) != 3 {
		t.Errorf("each worker needs its own transport: %d/%d", len(transports["a"]), len(transports["b"]))
	}
	mu.Unlock()

	transports["b"][2].push(`{"task":"Y"}`)
	waitFor(t, "message on queue b", func() bool {
		return env.recorder.Snapshot().Tasks["Y"].Successes == 1
	})

	waitFor(t, "workers listening", func() bool { return pool.States()[StateListening] == 5 })

	pool.Stop()

	if pool.States()[StateStopped] != 5 {
		t.Errorf("all workers should be stopped: %v", pool.States())
	}
}

func TestPool_FactoryError(t *testing.T) {
	pool := NewPool(PoolConfig{
		Queues:     []config.QueueConfig{{Protocol: "sqs", Name: "q", Workers: 1}},
		Dispatcher: newDispatchEnv().dispatcher,
		Logger:     telemetry.Discard(),
	})

	if err := pool.Start(context.Background()); !errors.Is(err, mq.ErrUnknownProtocol) {
		t.Errorf("expected ErrUnknownProtocol, got %v", err)
	}
	if pool.Size() != 0 {
		t.Error("no workers should start on factory error")
	}
	pool.Stop()
}

func TestLoop_ShutdownLeavesInFlightMessageUnacked(t *testing.T) {
	env := newDispatchEnv()

	var calls atomic.Int32
	started := make(chan struct{})
	var once sync.Once
	env.registry.Register("X", func(context.Context, *task.Message) error {
		calls.Add(1)
		once.Do(func() { close(started) })
		time.Sleep(50 * time.Millisecond)
		return errors.New("boom")
	})

	tr := newFakeTransport()
	loop, stop := startLoop(t, env, tr, &countingObserver{})

	tr.push(`{"task":"X","retries":5}`)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
	stop()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 attempt before shutdown, got %d", got)
	}
	if _, acked, _ := tr.stats(); len(acked) != 0 {
		t.Errorf("interrupted message should not be acknowledged, got %v", acked)
	}
	if loop.Processed() != 0 {
		t.Errorf("expected 0 processed, got %d", loop.Processed())
	}
	if reports := env.notifier.Reports(); len(reports) != 0 {
		t.Errorf("interrupted message should not be reported, got %d", len(reports))
	}
	if _, seen := env.recorder.Snapshot().Tasks["X"]; seen {
		t.Error("interrupted message should not be recorded")
	}
}
