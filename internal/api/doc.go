// Package api содержит HTTP сервер интроспекции воркера.
//
// Структура:
//   - handler.go    — Handler с зависимостями (метрики, реестр, уведомления, пул)
//   - routes.go     — регистрация маршрутов
//   - middleware.go — middleware (logging, recovery)
//   - response.go   — унифицированные JSON-ответы
//   - dto.go        — структуры ответов
//   - introspect.go — обработчики /api/v1
//
// GET /api/v1/introspect отдаёт снимок метрик в плоском формате
// {"task_<name>": {...}, "tasks_instrumented": N, "alive_since": S},
// остальные endpoints оборачивают ответ в {"data": ...}.
package api
