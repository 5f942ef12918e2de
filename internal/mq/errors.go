package mq

import "errors"

// Ошибки транспортов.
var (
	// ErrUnknownProtocol — протокол очереди не поддерживается.
	ErrUnknownProtocol = errors.New("unknown queue protocol")

	// ErrNotConnected — операция вызвана до Connect или после Close.
	ErrNotConnected = errors.New("transport not connected")

	// ErrConnectionClosed — брокер закрыл соединение.
	ErrConnectionClosed = errors.New("connection closed by broker")

	// ErrInvalidDelivery — Delivery получен не от этого транспорта.
	ErrInvalidDelivery = errors.New("invalid delivery token")
)
