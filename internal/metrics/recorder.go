// Package metrics агрегирует статистику выполнения задач в памяти процесса.
//
// Для каждого имени задачи хранятся счётчики успехов, неудач и повторов,
// а также окно последних SampleWindow длительностей выполнения. Все
// изменения идут под одной общей блокировкой: запись происходит раз на
// сообщение, что несравнимо реже самого выполнения задачи.
package metrics

import (
	"sync"
	"time"
)

// SampleWindow — сколько последних длительностей хранится на задачу.
const SampleWindow = 10000

// Recorder — потокобезопасный агрегатор метрик задач.
type Recorder struct {
	mu      sync.Mutex
	known   []string
	tasks   map[string]*taskStats
	started time.Time
	window  int
	now     func() time.Time
}

type taskStats struct {
	successes int64
	failures  int64
	retries   int64
	durations *ring
}

// NewRecorder создаёт пустой Recorder. Время жизни процесса отсчитывается
// от момента создания.
func NewRecorder() *Recorder {
	return newRecorder(SampleWindow, time.Now)
}

func newRecorder(window int, now func() time.Time) *Recorder {
	return &Recorder{
		tasks:   make(map[string]*taskStats),
		started: now(),
		window:  window,
		now:     now,
	}
}

// Record учитывает один итог выполнения сообщения.
func (r *Recorder) Record(task string, duration time.Duration, succeeded bool, retriesUsed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.tasks[task]
	if !ok {
		stats = &taskStats{durations: newRing(r.window)}
		r.tasks[task] = stats
		r.known = append(r.known, task)
	}

	stats.durations.push(int64(duration))

	if succeeded {
		stats.successes++
	} else {
		stats.failures++
	}

	if retriesUsed > 0 {
		stats.retries += int64(retriesUsed)
	}
}

// Snapshot делает согласованную копию под блокировкой; средние
// считаются уже после её снятия.
func (r *Recorder) Snapshot() Snapshot {
	type copied struct {
		name                         string
		successes, failures, retries int64
		samples                      []int64
	}

	r.mu.Lock()
	items := make([]copied, 0, len(r.known))
	for _, name := range r.known {
		s := r.tasks[name]
		items = append(items, copied{
			name:      name,
			successes: s.successes,
			failures:  s.failures,
			retries:   s.retries,
			samples:   s.durations.values(),
		})
	}
	uptime := r.now().Sub(r.started)
	r.mu.Unlock()

	snap := Snapshot{
		Tasks:        make(map[string]TaskSnapshot, len(items)),
		Order:        make([]string, 0, len(items)),
		Instrumented: len(items),
		AliveSince:   int64(uptime / time.Second),
	}

	for _, it := range items {
		snap.Order = append(snap.Order, it.name)
		snap.Tasks[it.name] = TaskSnapshot{
			Successes:   it.successes,
			Failures:    it.failures,
			Retries:     it.retries,
			AverageTime: averageMillis(it.samples),
			Samples:     len(it.samples),
		}
	}

	return snap
}

// averageMillis — среднее по окну в миллисекундах; пустое окно даёт 0.
func averageMillis(samples []int64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, ns := range samples {
		sum += float64(ns)
	}

	return sum / float64(len(samples)) / float64(time.Millisecond)
}

// ring — FIFO фиксированной ёмкости: при заполнении вытесняется самый старый элемент.
type ring struct {
	buf   []int64
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]int64, capacity)}
}

func (r *ring) push(v int64) {
	if len(r.buf) == 0 {
		return
	}

	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}

	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// values возвращает копию элементов от старого к новому.
func (r *ring) values() []int64 {
	out := make([]int64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
