package mq

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReconnectInterval — пауза между попытками подключения.
const DefaultReconnectInterval = 5 * time.Second

// ConnectWithRetry подключает t, повторяя попытки каждые interval.
//
// Число попыток не ограничено: функция возвращает nil после успешного
// подключения или ctx.Err() после отмены контекста.
func ConnectWithRetry(ctx context.Context, t Transport, logger *slog.Logger, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 1; ; attempt++ {
		err := t.Connect(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("connected after retries", "transport", t.String(), "attempts", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("connect failed, retrying",
			"transport", t.String(),
			"attempt", attempt,
			"retry_in", interval,
			"error", err,
		)

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
