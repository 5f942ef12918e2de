package task

import (
	"encoding/json"
	"fmt"
	"math"
)

// Ключи служебных полей сообщения.
const (
	FieldTask    = "task"
	FieldRetries = "retries"
)

// Message — распарсенное сообщение с задачей.
type Message struct {
	// Task — имя обработчика в реестре.
	Task string

	// Retries — количество дополнительных попыток сверх первой.
	Retries int

	// Fields — весь JSON-объект, включая task и retries.
	Fields map[string]any

	// Raw — исходный текст сообщения.
	Raw string
}

// Parse разбирает сырое сообщение из очереди.
//
// Возвращает ErrMalformedMessage, если тело не JSON-объект, поле task
// отсутствует или пустое, либо retries не является неотрицательным целым.
func Parse(raw []byte) (*Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not a json object", ErrMalformedMessage)
	}

	name, ok := fields[FieldTask].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: missing %q field", ErrMalformedMessage, FieldTask)
	}

	retries, err := parseRetries(fields[FieldRetries])
	if err != nil {
		return nil, err
	}

	return &Message{
		Task:    name,
		Retries: retries,
		Fields:  fields,
		Raw:     string(raw),
	}, nil
}

func parseRetries(v any) (int, error) {
	if v == nil {
		return 0, nil
	}

	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q must be a non-negative integer, got %v", ErrMalformedMessage, FieldRetries, v)
	}

	return int(n), nil
}

// Get возвращает произвольное поле сообщения.
func (m *Message) Get(key string) (any, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// String возвращает строковое поле или defaultVal.
func (m *Message) String(key, defaultVal string) string {
	if s, ok := m.Fields[key].(string); ok {
		return s
	}
	return defaultVal
}

// Float возвращает числовое поле или defaultVal.
func (m *Message) Float(key string, defaultVal float64) float64 {
	switch v := m.Fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultVal
}

// Map возвращает вложенный объект или nil.
func (m *Message) Map(key string) map[string]any {
	v, _ := m.Fields[key].(map[string]any)
	return v
}
