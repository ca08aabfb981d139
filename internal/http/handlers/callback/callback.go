// Package callback реализует HTTP-обработчик уведомлений платёжных провайдеров.
//
// Handler проверяет подпись тела запроса средствами провайдера и передаёт
// событие в сервис сверки. Ответ отдаётся простым текстом: провайдеры
// повторяют доставку до получения кода 200.
package callback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/subscription-payments/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-payments/internal/paymentprovider"
	"github.com/magabrotheeeer/subscription-payments/internal/services/reconcile"
)

// Verifier проверяет подпись callback-а и разбирает его в событие.
type Verifier interface {
	Name() string
	VerifyCallback(body []byte) (*paymentprovider.Event, error)
}

// Service описывает интерфейс сверки платёжных событий.
type Service interface {
	ProcessEvent(ctx context.Context, event *paymentprovider.Event) error
}

// Handler управляет HTTP-уведомлениями одного платёжного провайдера.
type Handler struct {
	log      *slog.Logger
	verifier Verifier
	service  Service
}

// New создает новый Handler для провайдера verifier.
func New(log *slog.Logger, verifier Verifier, service Service) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		service:  service,
	}
}

// ServeHTTP godoc
// @Summary Принять уведомление платёжного провайдера
// @Description Проверяет подпись уведомления и применяет событие к счёту. Ответ в виде простого текста.
// @Tags Callbacks
// @Accept  json
// @Produce  plain
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Bad request"
// @Failure 404 {string} string "Invoice not found"
// @Failure 422 {string} string "Invalid signature"
// @Failure 500 {string} string "Internal error"
// @Router /plisio-callback [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.callback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("provider", h.verifier.Name()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read callback body", sl.Err(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyCallback(body)
	if err != nil {
		if errors.Is(err, paymentprovider.ErrBadSignature) {
			log.Error("callback signature mismatch")
			http.Error(w, "Invalid signature", http.StatusUnprocessableEntity)
			return
		}
		log.Error("failed to decode callback", sl.Err(err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	log = log.With(
		slog.String("order_number", event.OrderNumber),
		slog.String("status", event.Status))

	if err := h.service.ProcessEvent(r.Context(), event); err != nil {
		if errors.Is(err, reconcile.ErrInvoiceNotFound) {
			log.Error("callback for unknown invoice")
			http.Error(w, "Invoice not found", http.StatusNotFound)
			return
		}
		log.Error("failed to process callback", sl.Err(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	log.Info("callback processed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
