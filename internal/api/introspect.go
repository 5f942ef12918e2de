package api

import (
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Health отвечает ok и временем работы процесса.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok %s", time.Since(h.startedAt).Truncate(time.Second))
}

// Introspect возвращает снимок метрик всех задач.
// GET /api/v1/introspect
func (h *Handler) Introspect(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.metrics.Snapshot())
}

// ListTasks возвращает задачи: зарегистрированные и уже встречавшиеся в очередях.
// GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, _ *http.Request) {
	snap := h.metrics.Snapshot()
	registered := h.registered()

	names := make(map[string]struct{}, len(snap.Tasks)+len(registered))
	for name := range snap.Tasks {
		names[name] = struct{}{}
	}
	for name := range registered {
		names[name] = struct{}{}
	}

	result := make([]TaskResponse, 0, len(names))
	for name := range names {
		_, ok := registered[name]
		result = append(result, TaskFromSnapshot(name, snap.Tasks[name], ok))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	List(w, result, len(result))
}

// GetTask возвращает метрики одной задачи.
// GET /api/v1/tasks/{name}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	t, seen := h.metrics.Snapshot().Tasks[name]
	_, registered := h.registered()[name]
	if !seen && !registered {
		NotFound(w, "task not found")
		return
	}

	Success(w, TaskFromSnapshot(name, t, registered))
}

// Notifications возвращает состояние очереди уведомлений.
// GET /api/v1/notifications
func (h *Handler) Notifications(w http.ResponseWriter, _ *http.Request) {
	if h.notifications == nil {
		Success(w, NotificationsResponse{Enabled: false})
		return
	}

	pending, capacity := h.notifications.Stats()
	Success(w, NotificationsResponse{
		Enabled:           true,
		Pending:           pending,
		Capacity:          capacity,
		RemainingCapacity: capacity - pending,
	})
}

// Workers возвращает число воркеров по состояниям.
// GET /api/v1/workers
func (h *Handler) Workers(w http.ResponseWriter, _ *http.Request) {
	if h.workers == nil {
		Unavailable(w, "worker pool is not running")
		return
	}

	states := make(map[string]int)
	for state, n := range h.workers.States() {
		states[state.String()] = n
	}

	Success(w, WorkersResponse{Total: h.workers.Size(), States: states})
}

func (h *Handler) registered() map[string]struct{} {
	out := make(map[string]struct{})
	if h.tasks == nil {
		return out
	}
	for _, name := range h.tasks.Names() {
		out[name] = struct{}{}
	}
	return out
}
