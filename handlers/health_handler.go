package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// Pinger проверяет доступность внешней зависимости (Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    *sql.DB
	cache Pinger // nil, если кеш не сконфигурирован
}

func NewHealthHandler(db *sql.DB, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Handler обрабатывает GET /healthz.
func (h *HealthHandler) Handler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := jsonResponse{"database": "ok"}

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		checks["cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	} else {
		checks["cache"] = "disabled"
	}

	if err := writeJSON(w, status, jsonResponse{"status": httpStatusLabel(status), "checks": checks}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func httpStatusLabel(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
