package notify

import "errors"

// Ошибки очереди уведомлений.
var (
	// ErrSinkClosed — очередь остановлена и больше не принимает отчёты.
	ErrSinkClosed = errors.New("notification sink closed")

	// ErrDelivery — внешний сервис не принял отчёт.
	ErrDelivery = errors.New("notification delivery failed")
)
