package builtin

import (
	"context"
	"time"

	"github.com/shaiso/Octobot/internal/task"
)

// DelayTask — задача "delay".
//
// Ожидает duration_sec секунд (default: 1). Отмена ctx прерывает ожидание
// с ошибкой.
type DelayTask struct{}

// Run выполняет задержку.
func (t *DelayTask) Run(ctx context.Context, msg *task.Message) error {
	durationSec := msg.Float("duration_sec", 1)
	if durationSec <= 0 {
		durationSec = 1
	}

	timer := time.NewTimer(time.Duration(durationSec * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
