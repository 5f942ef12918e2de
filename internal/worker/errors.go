package worker

import "errors"

// Ошибки воркера.
var (
	// ErrReceive — транспорт не смог получить сообщение.
	ErrReceive = errors.New("receive failed")

	// ErrAck — транспорт не смог подтвердить сообщение.
	ErrAck = errors.New("acknowledge failed")

	// ErrInterrupted — сообщение не дообработано из-за остановки.
	ErrInterrupted = errors.New("message interrupted")

	// ErrLoopPanic — паника внутри цикла получения.
	ErrLoopPanic = errors.New("consumer loop panic")

	// ErrPoolStarted — Start вызван повторно.
	ErrPoolStarted = errors.New("worker pool already started")
)
