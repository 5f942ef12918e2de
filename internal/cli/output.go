package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// Output печатает ответы introspection API: таблицу в stdout и сводку
// в stderr, либо один JSON-документ в stdout при --json.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output поверх stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выводит таблицу или jsonData в зависимости от режима.
// Пустая таблица выводится как строка empty.
func (o *Output) Print(headers []string, rows [][]string, jsonData any, empty string) error {
	if o.jsonMode {
		return o.JSON(jsonData)
	}
	if len(rows) == 0 && empty != "" {
		_, err := fmt.Fprintln(o.w, empty)
		return err
	}
	return o.Table(headers, rows)
}

// Table выводит строки через tabwriter. Колонки с числами
// (по заголовку из numericColumns) выравниваются вправо.
func (o *Output) Table(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	line := func(cells []string) {
		for i, c := range cells {
			if i < len(headers) && numericColumns[headers[i]] {
				c = strings.Repeat(" ", max(width(headers, rows, i)-len(c), 0)) + c
			}
			fmt.Fprint(tw, c, "\t")
		}
		fmt.Fprintln(tw)
	}

	line(headers)
	for _, row := range rows {
		line(row)
	}

	return tw.Flush()
}

// numericColumns — заголовки колонок со счётчиками.
var numericColumns = map[string]bool{
	"SUCCESSES": true,
	"FAILURES":  true,
	"RETRIES":   true,
	"AVG_MS":    true,
	"SAMPLES":   true,
	"PENDING":   true,
	"CAPACITY":  true,
	"REMAINING": true,
	"WORKERS":   true,
}

// width — ширина колонки i по самой длинной ячейке.
func width(headers []string, rows [][]string, i int) int {
	w := len(headers[i])
	for _, row := range rows {
		if i < len(row) {
			w = max(w, len(row[i]))
		}
	}
	return w
}

// JSON выводит v с отступами.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// Summary печатает пары key: value одной строкой в stderr.
// В JSON-режиме ничего не выводит: всё уже есть в документе.
func (o *Output) Summary(pairs ...string) {
	if o.jsonMode || len(pairs) < 2 {
		return
	}

	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, pairs[i]+": "+pairs[i+1])
	}
	fmt.Fprintln(o.errW, strings.Join(parts, ", "))
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// formatCount форматирует счётчик.
func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

// formatMillis форматирует среднее время; пустое окно выводится как "-".
func formatMillis(ms float64, samples int) string {
	if samples == 0 && ms == 0 {
		return "-"
	}
	return strconv.FormatFloat(ms, 'f', 3, 64)
}

// formatUptime переводит alive_since (секунды) в длительность.
func formatUptime(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
