// Package telemetry обеспечивает наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog
//
// Метрики задач собирает internal/metrics, наружу их отдаёт internal/api.
package telemetry
