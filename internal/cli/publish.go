package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Octobot/internal/config"
	"github.com/shaiso/Octobot/internal/mq"
	"github.com/shaiso/Octobot/internal/task"
)

const publishTimeout = 15 * time.Second

// Opener создаёт подключённый транспорт для очереди.
type Opener func(ctx context.Context, q config.QueueConfig) (mq.Transport, error)

// DialQueue подключается к очереди через mq.New.
func DialQueue(logger *slog.Logger) Opener {
	return func(ctx context.Context, q config.QueueConfig) (mq.Transport, error) {
		t, err := mq.New(q, logger)
		if err != nil {
			return nil, err
		}
		if err := t.Connect(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewPublishCmd создаёт команду публикации задачи в очередь.
func NewPublishCmd(configFn func() string, openFn Opener, outputFn func() *Output) *cobra.Command {
	var queue string
	var name string
	var retries int
	var fields []string
	var body string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a task message to a configured queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, found, err := config.Load(configFn())
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("config %s not found", configFn())
			}

			q, ok := cfg.Queue(queue)
			if !ok {
				return fmt.Errorf("queue %q is not configured", queue)
			}

			payload, err := BuildMessage(name, retries, body, fields)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
			defer cancel()

			t, err := openFn(ctx, q)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", q.String(), err)
			}
			defer t.Close()

			if err := t.Publish(ctx, payload); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Published %s to %s", name, q.String()))
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "Queue name from the config (required)")
	cmd.Flags().StringVar(&name, "task", "", "Task name (required)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Additional attempts after the first failure")
	cmd.Flags().StringVar(&body, "body", "", "JSON object with extra fields")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Extra field key=value (value parsed as JSON if valid)")
	cmd.MarkFlagRequired("queue")
	cmd.MarkFlagRequired("task")

	return cmd
}

// BuildMessage собирает JSON сообщения задачи.
//
// body — JSON-объект с полями, fields — пары key=value поверх него.
// Значение field разбирается как JSON, иначе берётся строкой.
func BuildMessage(name string, retries int, body string, fields []string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("task name is required")
	}
	if retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", retries)
	}

	msg := make(map[string]any)
	if body != "" {
		if err := json.Unmarshal([]byte(body), &msg); err != nil || msg == nil {
			return nil, fmt.Errorf("invalid --body: must be a JSON object")
		}
	}

	for _, f := range fields {
		key, raw, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q: expected key=value", f)
		}

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		msg[key] = v
	}

	msg[task.FieldTask] = name
	msg[task.FieldRetries] = retries

	return json.Marshal(msg)
}
