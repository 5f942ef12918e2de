package task

import (
	"errors"
	"fmt"
)

// Ошибки разрешения и выполнения задач.
var (
	// ErrMalformedMessage — сообщение не JSON-объект или без поля task.
	ErrMalformedMessage = errors.New("malformed task message")

	// ErrTaskNotFound — в реестре нет обработчика с таким именем.
	ErrTaskNotFound = errors.New("task not found")

	// ErrHandlerContract — обработчик найден, но имеет неподходящую сигнатуру.
	ErrHandlerContract = errors.New("task handler has invalid signature")

	// ErrTaskExecution — обработчик вернул ошибку или запаниковал.
	ErrTaskExecution = errors.New("task execution failed")
)

// ExecutionError — ошибка выполнения обработчика.
//
// errors.Is(err, ErrTaskExecution) и errors.Is(err, Cause) оба истинны.
type ExecutionError struct {
	Task  string
	Cause error

	// Stack заполнен, если обработчик запаниковал.
	Stack []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("run task %s: %v", e.Task, e.Cause)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrTaskExecution, e.Cause}
}

// StackTrace возвращает стек паники, если он есть.
func (e *ExecutionError) StackTrace() []byte {
	return e.Stack
}
