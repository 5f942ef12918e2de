package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/Octobot/internal/metrics"
	"github.com/shaiso/Octobot/internal/notify"
	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// collectingNotifier запоминает отчёты вместо отправки.
type collectingNotifier struct {
	mu      sync.Mutex
	reports []notify.Report
}

func (n *collectingNotifier) Enqueue(_ context.Context, r notify.Report) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, r)
	return nil
}

func (n *collectingNotifier) Reports() []notify.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Report(nil), n.reports...)
}

type dispatchEnv struct {
	registry   *task.Registry
	recorder   *metrics.Recorder
	notifier   *collectingNotifier
	dispatcher *Dispatcher
}

func newDispatchEnv() *dispatchEnv {
	env := &dispatchEnv{
		registry: task.NewRegistry(),
		recorder: metrics.NewRecorder(),
		notifier: &collectingNotifier{},
	}
	env.dispatcher = NewDispatcher(DispatcherConfig{
		Registry: env.registry,
		Recorder: env.recorder,
		Notifier: env.notifier,
		Logger:   telemetry.Discard(),
	})
	return env
}

func TestDispatch_AlwaysFails(t *testing.T) {
	env := newDispatchEnv()

	calls := 0
	env.registry.Register("X", func(*task.Message) error {
		calls++
		return errors.New("boom")
	})

	outcome, ok := env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"X","retries":2}`))
	if !ok {
		t.Fatal("message should be dispatched")
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	if outcome.Succeeded || outcome.Attempts != 3 || outcome.RetriesUsed() != 2 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if !errors.Is(outcome.Err, task.ErrTaskExecution) {
		t.Errorf("expected execution error, got %v", outcome.Err)
	}

	reports := env.notifier.Reports()
	if len(reports) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(reports))
	}
	if text := reports[0].Format(); !strings.Contains(text, "Attempted executing 2 times") {
		t.Errorf("unexpected report text:\n%s", text)
	}

	got := env.recorder.Snapshot().Tasks["X"]
	if got.Successes != 0 || got.Failures != 1 || got.Retries != 2 {
		t.Errorf("unexpected metrics for X: %+v", got)
	}
}

func TestDispatch_SucceedsImmediately(t *testing.T) {
	env := newDispatchEnv()

	calls := 0
	env.registry.Register("Y", func(*task.Message) { calls++ })

	outcome, ok := env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"Y"}`))
	if !ok || !outcome.Succeeded {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
	if len(env.notifier.Reports()) != 0 {
		t.Error("success should not produce a notification")
	}

	got := env.recorder.Snapshot().Tasks["Y"]
	if got.Successes != 1 || got.Failures != 0 || got.Retries != 0 {
		t.Errorf("unexpected metrics for Y: %+v", got)
	}
	if got.AverageTime <= 0 {
		t.Errorf("average time should be positive, got %v", got.AverageTime)
	}
}

func TestDispatch_UnknownTask(t *testing.T) {
	env := newDispatchEnv()

	outcome, ok := env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"Z"}`))
	if !ok {
		t.Fatal("message should be dispatched")
	}
	if outcome.Attempts != 1 || !errors.Is(outcome.Err, task.ErrTaskNotFound) {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if len(env.notifier.Reports()) != 1 {
		t.Errorf("expected 1 notification, got %d", len(env.notifier.Reports()))
	}
	if got := env.recorder.Snapshot().Tasks["Z"]; got.Failures != 1 {
		t.Errorf("expected 1 failure for Z, got %+v", got)
	}
}

func TestDispatch_SucceedsOnKthAttempt(t *testing.T) {
	env := newDispatchEnv()

	calls := 0
	env.registry.Register("flaky", func(*task.Message) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	outcome, _ := env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"flaky","retries":5}`))
	if !outcome.Succeeded || calls != 3 {
		t.Fatalf("expected success on 3rd attempt, got %+v after %d calls", outcome, calls)
	}

	got := env.recorder.Snapshot().Tasks["flaky"]
	if got.Successes != 1 || got.Retries != 2 {
		t.Errorf("unexpected metrics: %+v", got)
	}
	if len(env.notifier.Reports()) != 0 {
		t.Error("eventual success should not notify")
	}
}

func TestDispatch_HandlerContractAndLateRegistration(t *testing.T) {
	env := newDispatchEnv()
	env.registry.Register("bad", 42)

	outcome, _ := env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"bad","retries":1}`))
	if !errors.Is(outcome.Err, task.ErrHandlerContract) || outcome.Attempts != 2 {
		t.Errorf("expected 2 contract violations, got %+v", outcome)
	}

	// Неудачное разрешение не кэшируется.
	env.registry.Register("bad", func(*task.Message) {})
	outcome, _ = env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"bad"}`))
	if !outcome.Succeeded {
		t.Errorf("fixed handler should succeed, got %+v", outcome)
	}
}

func TestDispatch_PanicIsExecutionError(t *testing.T) {
	env := newDispatchEnv()
	env.registry.Register("panics", func(*task.Message) { panic("kaboom") })

	outcome, _ := env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"panics"}`))

	var execErr *task.ExecutionError
	if !errors.As(outcome.Err, &execErr) || len(execErr.Stack) == 0 {
		t.Fatalf("expected execution error with stack, got %v", outcome.Err)
	}
	if !strings.Contains(env.notifier.Reports()[0].Format(), "kaboom") {
		t.Error("report should mention the panic value")
	}
}

func TestDispatch_Malformed(t *testing.T) {
	env := newDispatchEnv()

	for _, raw := range []string{`not json`, `[1,2]`, `{"retries":1}`, `{"task":""}`, `{"task":"X","retries":-1}`} {
		if _, ok := env.dispatcher.Dispatch(context.Background(), []byte(raw)); ok {
			t.Errorf("%q should be rejected", raw)
		}
	}

	snap := env.recorder.Snapshot()
	if snap.Instrumented != 0 || len(snap.Tasks) != 0 {
		t.Errorf("malformed messages should not touch metrics: %+v", snap)
	}
	if len(env.notifier.Reports()) != 0 {
		t.Error("malformed messages should not notify")
	}
}

func TestDispatch_WithoutNotifier(t *testing.T) {
	recorder := metrics.NewRecorder()
	d := NewDispatcher(DispatcherConfig{
		Registry: task.NewRegistry(),
		Recorder: recorder,
		Logger:   telemetry.Discard(),
	})

	if _, ok := d.Dispatch(context.Background(), []byte(`{"task":"missing"}`)); !ok {
		t.Fatal("message should be dispatched")
	}
	if recorder.Snapshot().Tasks["missing"].Failures != 1 {
		t.Error("failure should be recorded without notifier")
	}
}

func TestDispatch_ConcurrentWorkers(t *testing.T) {
	env := newDispatchEnv()

	var mu sync.Mutex
	n := 0
	env.registry.Register("alt", func(*task.Message) error {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n%2 == 0 {
			return errors.New("even")
		}
		return nil
	})

	const workers, perWorker = 8, 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				env.dispatcher.Dispatch(context.Background(), []byte(`{"task":"alt"}`))
			}
		}()
	}
	wg.Wait()

	got := env.recorder.Snapshot().Tasks["alt"]
	if got.Successes+got.Failures != workers*perWorker {
		t.Errorf("expected %d outcomes, got %d", workers*perWorker, got.Successes+got.Failures)
	}
	if int(got.Failures) != len(env.notifier.Reports()) {
		t.Errorf("each failure should produce one report: %d vs %d", got.Failures, len(env.notifier.Reports()))
	}
}

func TestDispatch_CanceledContext(t *testing.T) {
	env := newDispatchEnv()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	env.registry.Register("X", func(*task.Message) error {
		calls++
		cancel()
		return errors.New("boom")
	})

	outcome, ok := env.dispatcher.Dispatch(ctx, []byte(`{"task":"X","retries":3}`))
	if !ok {
		t.Fatal("message should be dispatched")
	}
	if !outcome.Interrupted {
		t.Errorf("expected interrupted outcome, got %+v", outcome)
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
	if len(env.notifier.Reports()) != 0 {
		t.Error("interrupted message should not be reported")
	}
	if env.recorder.Snapshot().Instrumented != 0 {
		t.Error("interrupted message should not be recorded")
	}
}
