package notify

import (
	"errors"
	"fmt"
	"strings"
)

// Report — отчёт о задаче, исчерпавшей все попытки.
type Report struct {
	Task     string
	Retries  int
	Attempts int
	Raw      string
	Err      error
}

// Subject — тема письма с отчётом.
const Subject = "Task Error Notification"

// Format рендерит отчёт в текст для отправки.
func (r Report) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Error running task: %s.\n\n", r.Task)
	fmt.Fprintf(&b, "Attempted executing %d times as specified (%d attempts made).\n\n", r.Retries, r.Attempts)
	fmt.Fprintf(&b, "The original input was: \n\n%s\n\n", r.Raw)
	fmt.Fprintf(&b, "Here's the error that resulted while running the task:\n\n%s", Trace(r.Err))

	return b.String()
}

// Trace рендерит цепочку ошибок и, если есть, стек паники.
func Trace(err error) string {
	if err == nil {
		return "(none)"
	}

	var b strings.Builder
	b.WriteString(err.Error())

	var stack []byte
	for _, cause := range causes(err) {
		fmt.Fprintf(&b, "\ncaused by: %v", cause)
	}

	var st interface{ StackTrace() []byte }
	if errors.As(err, &st) {
		stack = st.StackTrace()
	}
	if len(stack) > 0 {
		b.WriteString("\n\n")
		b.Write(stack)
	}

	return b.String()
}

// causes раскрывает цепочку Unwrap, пропуская дубли сообщений.
func causes(err error) []error {
	var out []error
	seen := map[string]bool{err.Error(): true}

	queue := unwrap(err)
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e == nil {
			continue
		}
		if msg := e.Error(); !seen[msg] {
			seen[msg] = true
			out = append(out, e)
		}
		queue = append(queue, unwrap(e)...)
	}

	return out
}

func unwrap(err error) []error {
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		return u.Unwrap()
	case interface{ Unwrap() error }:
		return []error{u.Unwrap()}
	}
	return nil
}
