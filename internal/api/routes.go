package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Instrument(h.requests),
		Logging(h.logger),
	)

	// Health и metrics
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	// Introspection
	mux.Handle("GET /api/v1/introspect", chain(http.HandlerFunc(h.Introspect)))
	mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
	mux.Handle("GET /api/v1/tasks/{name}", chain(http.HandlerFunc(h.GetTask)))
	mux.Handle("GET /api/v1/notifications", chain(http.HandlerFunc(h.Notifications)))
	mux.Handle("GET /api/v1/workers", chain(http.HandlerFunc(h.Workers)))
}

// Routes возвращает mux со всеми маршрутами.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}
