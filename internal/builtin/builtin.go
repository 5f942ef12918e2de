package builtin

import (
	"net/http"

	"github.com/shaiso/Octobot/internal/task"
)

// Имена встроенных задач.
const (
	TaskHTTP  = "http"
	TaskDelay = "delay"
	TaskLog   = "log"
)

// Register регистрирует встроенные задачи в реестре.
func Register(reg *task.Registry) {
	reg.Register(TaskHTTP, &HTTPTask{Client: http.DefaultClient})
	reg.Register(TaskDelay, &DelayTask{})
	reg.Register(TaskLog, &LogTask{})
}
