package mq

import (
	"context"
	"time"
)

// DefaultPollTimeout — сколько Receive ждёт сообщение по умолчанию.
const DefaultPollTimeout = time.Second

// Delivery — сообщение, полученное из брокера.
type Delivery struct {
	// Body — сырое тело сообщения.
	Body []byte

	// Token — данные для подтверждения, понятные только транспорту,
	// который выдал сообщение.
	Token any
}

// Publisher публикует сообщения в очередь.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Transport — соединение с одной очередью одного брокера.
type Transport interface {
	Publisher

	// Connect устанавливает (или переустанавливает) соединение.
	Connect(ctx context.Context) error

	// Receive ждёт следующее сообщение не дольше timeout.
	Receive(ctx context.Context, timeout time.Duration) (*Delivery, error)

	// Ack подтверждает обработку сообщения.
	Ack(ctx context.Context, d *Delivery) error

	Close() error

	// String описывает транспорт для логов, без пароля.
	String() string
}
