package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Octobot/internal/task"
	"github.com/shaiso/Octobot/internal/telemetry"
)

// Hook-события, подставляемые в синтетическое сообщение.
const (
	HookStartup  = "startup"
	HookShutdown = "shutdown"
)

// FieldHook — поле синтетического сообщения с именем события.
const FieldHook = "hook"

// RunHook вызывает задачу name из реестра один раз, без повторов.
//
// Пустое имя — no-op. Ошибка возвращается вызывающему, который решает,
// продолжать ли запуск. Метрики хуков не учитываются.
func RunHook(ctx context.Context, reg *task.Registry, event, name string, logger *slog.Logger) error {
	if name == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	body, err := json.Marshal(map[string]any{
		task.FieldTask: name,
		FieldHook:      event,
	})
	if err != nil {
		return fmt.Errorf("build %s hook message: %w", event, err)
	}

	msg, err := task.Parse(body)
	if err != nil {
		return fmt.Errorf("%s hook: %w", event, err)
	}

	h, err := reg.Resolve(name)
	if err != nil {
		return fmt.Errorf("%s hook: %w", event, err)
	}

	logger = telemetry.WithTask(logger, name)
	start := time.Now()

	if err := task.Invoke(telemetry.WithLogger(ctx, logger), h, msg); err != nil {
		return fmt.Errorf("%s hook: %w", event, err)
	}

	logger.Info("hook completed", "hook", event, "duration", time.Since(start))
	return nil
}
