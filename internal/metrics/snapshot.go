package metrics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TaskPrefix — префикс ключа задачи в introspection JSON.
const TaskPrefix = "task_"

// TaskSnapshot — метрики одной задачи.
type TaskSnapshot struct {
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	Retries     int64   `json:"retries"`
	AverageTime float64 `json:"average_time"`

	// Samples — текущий размер окна длительностей.
	Samples int `json:"-"`
}

// Snapshot — согласованный срез метрик всех задач.
type Snapshot struct {
	// Tasks — метрики по имени задачи.
	Tasks map[string]TaskSnapshot

	// Order — имена задач в порядке первого появления.
	Order []string

	// Instrumented — сколько разных задач видел процесс.
	Instrumented int

	// AliveSince — время жизни процесса в секундах.
	AliveSince int64
}

// MarshalJSON выдаёт плоский объект introspection:
//
//	{"task_X": {"successes":0,"failures":1,"retries":2,"average_time":0.12},
//	 "tasks_instrumented": 1, "alive_since": 36}
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Tasks)+2)
	for name, t := range s.Tasks {
		out[TaskPrefix+name] = t
	}
	out["tasks_instrumented"] = s.Instrumented
	out["alive_since"] = s.AliveSince
	return json.Marshal(out)
}

// UnmarshalJSON разбирает introspection JSON обратно в Snapshot.
// Порядок задач при этом не восстанавливается и сортируется по имени.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Snapshot{Tasks: make(map[string]TaskSnapshot)}

	for key, value := range raw {
		switch {
		case key == "tasks_instrumented":
			if err := json.Unmarshal(value, &s.Instrumented); err != nil {
				return fmt.Errorf("tasks_instrumented: %w", err)
			}
		case key == "alive_since":
			if err := json.Unmarshal(value, &s.AliveSince); err != nil {
				return fmt.Errorf("alive_since: %w", err)
			}
		case strings.HasPrefix(key, TaskPrefix):
			var t TaskSnapshot
			if err := json.Unmarshal(value, &t); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			s.Tasks[strings.TrimPrefix(key, TaskPrefix)] = t
		}
	}

	for name := range s.Tasks {
		s.Order = append(s.Order, name)
	}
	sort.Strings(s.Order)

	return nil
}
