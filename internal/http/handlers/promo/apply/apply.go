// Package apply реализует HTTP-обработчик применения промокода.
package apply

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-payments/internal/http/response"
	"github.com/magabrotheeeer/subscription-payments/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-payments/internal/models"
	"github.com/magabrotheeeer/subscription-payments/internal/services/checkout"
)

// Service описывает интерфейс бизнес-логики применения промокода.
type Service interface {
	ApplyPromo(ctx context.Context, code, subscriptionType string) (*checkout.PromoResult, error)
}

// Handler управляет HTTP-запросами на применение промокода.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Применить промокод
// @Description Проверяет промокод для выбранного срока подписки и возвращает обновлённые цены. Использование не списывается до создания счёта.
// @Tags Promos
// @Accept  json
// @Produce  json
// @Param request body models.ApplyPromoRequest true "Промокод и срок подписки"
// @Success 200 {object} checkout.PromoResult "Результат применения"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /apply-promo [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.promo.apply"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ApplyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	result, err := h.service.ApplyPromo(r.Context(), req.PromoCode, req.SubscriptionType)
	if err != nil {
		log.Error("failed to apply promo", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not apply promo code"))
		return
	}

	log.Info("promo checked",
		slog.String("code", req.PromoCode),
		slog.Bool("success", result.Success))
	render.JSON(w, r, result)
}
