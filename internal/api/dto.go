package api

import "github.com/shaiso/Octobot/internal/metrics"

// TaskResponse — метрики одной задачи.
type TaskResponse struct {
	Name        string  `json:"name"`
	Registered  bool    `json:"registered"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	Retries     int64   `json:"retries"`
	AverageTime float64 `json:"average_time"`
	Samples     int     `json:"samples"`
}

// TaskFromSnapshot собирает TaskResponse из снимка.
func TaskFromSnapshot(name string, t metrics.TaskSnapshot, registered bool) TaskResponse {
	return TaskResponse{
		Name:        name,
		Registered:  registered,
		Successes:   t.Successes,
		Failures:    t.Failures,
		Retries:     t.Retries,
		AverageTime: t.AverageTime,
		Samples:     t.Samples,
	}
}

// NotificationsResponse — состояние очереди уведомлений.
type NotificationsResponse struct {
	Enabled           bool `json:"enabled"`
	Pending           int  `json:"pending"`
	Capacity          int  `json:"capacity"`
	RemainingCapacity int  `json:"remaining_capacity"`
}

// WorkersResponse — состояние пула воркеров.
type WorkersResponse struct {
	Total  int            `json:"total"`
	States map[string]int `json:"states"`
}
