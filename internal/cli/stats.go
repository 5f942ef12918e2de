package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStatsCmd создаёт команду вывода снимка метрик.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task metrics of a running worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			snap, err := client.Introspect()
			if err != nil {
				return err
			}

			names := snap.Order
			if len(names) == 0 {
				for name := range snap.Tasks {
					names = append(names, name)
				}
				sort.Strings(names)
			}

			headers := []string{"TASK", "SUCCESSES", "FAILURES", "RETRIES", "AVG_MS"}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				t := snap.Tasks[name]
				rows = append(rows, []string{
					name,
					formatCount(t.Successes),
					formatCount(t.Failures),
					formatCount(t.Retries),
					formatMillis(t.AverageTime, t.Samples),
				})
			}

			if err := out.Print(headers, rows, snap, "no tasks executed yet"); err != nil {
				return err
			}
			out.Summary(
				"tasks instrumented", strconv.Itoa(snap.Instrumented),
				"alive", formatUptime(snap.AliveSince),
			)
			return nil
		},
	}
}

// NewTasksCmd создаёт команду списка задач.
func NewTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks [NAME]",
		Short: "List registered and observed tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var tasks []TaskResponse
			if len(args) == 1 {
				t, err := client.GetTask(args[0])
				if err != nil {
					return err
				}
				tasks = []TaskResponse{*t}
			} else {
				var err error
				if tasks, err = client.ListTasks(); err != nil {
					return err
				}
			}

			headers := []string{"TASK", "REGISTERED", "SUCCESSES", "FAILURES", "RETRIES", "SAMPLES"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{
					t.Name,
					strconv.FormatBool(t.Registered),
					formatCount(t.Successes),
					formatCount(t.Failures),
					formatCount(t.Retries),
					strconv.Itoa(t.Samples),
				}
			}

			return out.Print(headers, rows, tasks, "no tasks registered")
		},
	}
}

// NewNotificationsCmd создаёт команду состояния очереди уведомлений.
func NewNotificationsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show the failure notification queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := clientFn().Notifications()
			if err != nil {
				return err
			}

			headers := []string{"ENABLED", "PENDING", "CAPACITY", "REMAINING"}
			rows := [][]string{{
				strconv.FormatBool(n.Enabled),
				strconv.Itoa(n.Pending),
				strconv.Itoa(n.Capacity),
				strconv.Itoa(n.RemainingCapacity),
			}}

			return outputFn().Print(headers, rows, n, "")
		},
	}
}

// NewWorkersCmd создаёт команду состояния пула воркеров.
func NewWorkersCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "Show worker loop states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := clientFn().Workers()
			if err != nil {
				return err
			}

			states := make([]string, 0, len(w.States))
			for state := range w.States {
				states = append(states, state)
			}
			sort.Strings(states)

			headers := []string{"STATE", "WORKERS"}
			rows := make([][]string, 0, len(states)+1)
			for _, state := range states {
				rows = append(rows, []string{state, strconv.Itoa(w.States[state])})
			}
			rows = append(rows, []string{"total", strconv.Itoa(w.Total)})

			return outputFn().Print(headers, rows, w, "")
		},
	}
}
