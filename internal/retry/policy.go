// Package retry решает, сколько раз выполнять задачу.
//
// Политика чисто логическая: без задержек между попытками и без
// состояния между сообщениями. Сообщение с retries=N выполняется
// не более N+1 раз, первый успех останавливает цикл. Отмена контекста
// прерывает цикл, но не считается исчерпанием попыток.
package retry

import "context"

// Policy — политика повторов для одного сообщения.
type Policy struct {
	// Retries — количество дополнительных попыток сверх первой.
	Retries int
}

// New создаёт Policy. Отрицательное значение считается нулём.
func New(retries int) Policy {
	if retries < 0 {
		retries = 0
	}
	return Policy{Retries: retries}
}

// MaxAttempts возвращает общее число попыток.
func (p Policy) MaxAttempts() int {
	return max(p.Retries, 0) + 1
}

// Allows сообщает, разрешена ли попытка с индексом attempt (с нуля).
func (p Policy) Allows(attempt int) bool {
	return attempt >= 0 && attempt < p.MaxAttempts()
}

// AttemptFunc — одна попытка выполнения. attempt начинается с 0.
type AttemptFunc func(ctx context.Context, attempt int) error

// Result — итог выполнения по политике.
type Result struct {
	// Attempts — сколько попыток было сделано.
	Attempts int

	// Err — ошибка последней попытки (nil при успехе).
	Err error

	// Interrupted — ctx отменён до успеха: попытки не исчерпаны
	// или последняя из них могла упасть из-за отмены.
	Interrupted bool
}

// Succeeded сообщает, завершилась ли последняя попытка успехом.
func (r Result) Succeeded() bool {
	return r.Attempts > 0 && r.Err == nil
}

// RetriesUsed возвращает число повторов (попытки сверх первой).
func (r Result) RetriesUsed() int {
	return max(r.Attempts-1, 0)
}

// Run выполняет fn, пока она не вернёт nil или не закончатся попытки.
//
// Отмена ctx прерывает цикл между попытками. Такой итог помечается
// Interrupted и не является окончательной неудачей.
func (p Policy) Run(ctx context.Context, fn AttemptFunc) Result {
	var res Result

	for attempt := 0; p.Allows(attempt); attempt++ {
		if attempt > 0 && ctx.Err() != nil {
			res.Interrupted = true
			return res
		}

		res.Attempts++
		res.Err = fn(ctx, attempt)
		if res.Err == nil {
			break
		}
	}

	if res.Err != nil && ctx.Err() != nil {
		res.Interrupted = true
	}
	return res
}
