package config

import (
	"errors"
	"io/fs"
)

// Ошибки конфигурации.
var (
	// ErrNoQueues — в конфигурации нет ни одной очереди.
	ErrNoQueues = errors.New("no valid queues configured")

	// ErrInvalidProtocol — неизвестный протокол очереди.
	ErrInvalidProtocol = errors.New("invalid queue protocol")

	// ErrInvalidQueue — некорректные параметры очереди.
	ErrInvalidQueue = errors.New("invalid queue config")

	// ErrInvalidEmail — email включён, но настроен не полностью.
	ErrInvalidEmail = errors.New("invalid email config")
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
