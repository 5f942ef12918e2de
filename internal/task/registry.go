package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
)

// Handler — обработчик задачи. Получает ровно одно сообщение и либо
// завершается без результата, либо возвращает ошибку выполнения.
type Handler interface {
	Run(ctx context.Context, msg *Message) error
}

// HandlerFunc — адаптер функции к Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Run вызывает f(ctx, msg).
func (f HandlerFunc) Run(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// LookupFunc — динамический поиск обработчика по имени.
// Возвращает значение любого типа; пригодность проверяет Adapt.
type LookupFunc func(name string) (any, bool)

// Registry — реестр обработчиков задач по имени.
//
// Потокобезопасен: Resolve вызывается из всех воркеров одновременно.
type Registry struct {
	mu     sync.RWMutex
	table  map[string]any
	cache  map[string]Handler
	lookup LookupFunc
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		table: make(map[string]any),
		cache: make(map[string]Handler),
	}
}

// SetLookup задаёт динамический поиск, который используется,
// если имени нет в таблице Register.
func (r *Registry) SetLookup(fn LookupFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookup = fn
}

// Register связывает имя с обработчиком.
//
// Сигнатура handler проверяется при Resolve.
func (r *Registry) Register(name string, handler any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[name] = handler
	delete(r.cache, name)
}

// Unregister удаляет обработчик.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.table, name)
	delete(r.cache, name)
}

// Has проверяет, зарегистрировано ли имя в таблице.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.table[name]
	return ok
}

// Names возвращает отсортированный список зарегистрированных имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.table))
	for name := range r.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve возвращает обработчик по имени.
//
// Ошибки: ErrTaskNotFound, ErrHandlerContract. Неудачное разрешение
// не кэшируется.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	h, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.cache[name]; ok {
		return h, nil
	}

	v, ok := r.table[name]
	if !ok && r.lookup != nil {
		v, ok = r.lookup(name)
	}
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}

	h, ok = Adapt(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrHandlerContract, name, v)
	}

	r.cache[name] = h
	return h, nil
}

// Adapt приводит значение к Handler.
//
// Поддерживаемые формы:
//   - Handler
//   - func(context.Context, *Message) error
//   - func(*Message) error
//   - func(*Message)
func Adapt(v any) (Handler, bool) {
	switch fn := v.(type) {
	case Handler:
		return fn, true
	case func(context.Context, *Message) error:
		return HandlerFunc(fn), true
	case func(*Message) error:
		return HandlerFunc(func(_ context.Context, msg *Message) error {
			return fn(msg)
		}), true
	case func(*Message):
		return HandlerFunc(func(_ context.Context, msg *Message) error {
			fn(msg)
			return nil
		}), true
	default:
		return nil, false
	}
}

// Invoke выполняет обработчик, превращая ошибку и панику в *ExecutionError.
func Invoke(ctx context.Context, h Handler, msg *Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ExecutionError{
				Task:  msg.Task,
				Cause: fmt.Errorf("panic: %v", rec),
				Stack: debug.Stack(),
			}
		}
	}()

	if runErr := h.Run(ctx, msg); runErr != nil {
		return &ExecutionError{Task: msg.Task, Cause: runErr}
	}
	return nil
}
