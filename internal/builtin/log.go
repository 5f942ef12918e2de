package builtin

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// LogTask — задача "log": пишет поля сообщения в лог воркера.
//
// Поле level (DEBUG, INFO, WARN, ERROR) задаёт уровень записи.
type LogTask struct{}

// Run записывает сообщение в лог.
func (t *LogTask) Run(ctx context.Context, msg *task.Message) error {
	level := telemetry.ParseLevel(msg.String("level", "INFO"))

	keys := make([]string, 0, len(msg.Fields))
	for key := range msg.Fields {
		if key == task.FieldTask || key == task.FieldRetries || key == "level" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, slog.Any(key, msg.Fields[key]))
	}

	telemetry.FromContext(ctx).LogAttrs(ctx, level, "log task", attrs...)
	return nil
}
