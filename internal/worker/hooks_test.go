package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

func TestRunHook(t *testing.T) {
	reg := task.NewRegistry()

	var got string
	reg.Register("warmup", func(msg *task.Message) {
		got = msg.String(FieldHook, "")
	})

	if err := RunHook(context.Background(), reg, HookStartup, "warmup", telemetry.Discard()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != HookStartup {
		t.Errorf("expected hook field %q, got %q", HookStartup, got)
	}
}

func TestRunHook_Empty(t *testing.T) {
	if err := RunHook(context.Background(), task.NewRegistry(), HookShutdown, "", nil); err != nil {
		t.Errorf("empty hook should be a no-op, got %v", err)
	}
}

func TestRunHook_Errors(t *testing.T) {
	reg := task.NewRegistry()
	reg.Register("broken", func(*task.Message) error { return errors.New("boom") })
	reg.Register("panics", func(*task.Message) { panic("oops") })
	reg.Register("wrong", 42)

	tests := []struct {
		name    string
		hook    string
		wantErr error
	}{
		{"not found", "missing", task.ErrTaskNotFound},
		{"handler error", "broken", task.ErrTaskExecution},
		{"panic", "panics", task.ErrTaskExecution},
		{"contract", "wrong", task.ErrHandlerContract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunHook(context.Background(), reg, HookStartup, tt.hook, telemetry.Discard())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
