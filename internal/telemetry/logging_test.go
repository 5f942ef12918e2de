package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithQueue(NewLogger(&buf, slog.LevelInfo, "json"), "amqp", "tasks")

	logger.Info("connected")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line should be json: %v", err)
	}
	if entry["msg"] != "connected" || entry["queue"] != "tasks" || entry["protocol"] != "amqp" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	WithTask(NewLogger(&buf, slog.LevelDebug, "text"), "X").Debug("retrying")

	if !strings.Contains(buf.String(), "task=X") {
		t.Errorf("expected text output with task=X, got %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	logger := Discard()
	ctx := WithLogger(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("logger from context should be returned")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("default logger expected for empty context")
	}
}
