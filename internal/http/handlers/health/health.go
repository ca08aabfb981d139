// Package health реализует HTTP-обработчик проверки работоспособности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// ReadinessChecker проверяет готовность хранилища.
type ReadinessChecker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// Handler отвечает на запросы проверки работоспособности.
type Handler struct {
	log     *slog.Logger
	checker ReadinessChecker
}

// New создает новый Handler с переданными логгером и проверкой хранилища.
func New(log *slog.Logger, checker ReadinessChecker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
		h.log.Error("database is not ready")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]any{"status": "unavailable"})
		return
	}
	render.JSON(w, r, map[string]any{"status": "ok"})
}
