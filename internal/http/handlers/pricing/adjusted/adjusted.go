// Package adjusted реализует HTTP-обработчик расчёта цен со скидками.
package adjusted

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

// Service описывает интерфейс бизнес-логики расчёта цен.
type Service interface {
	AdjustedPrices(ctx context.Context, username, promoCode, subscriptionType string) (*checkout.PricesResult, error)
}

// Handler управляет HTTP-запросами на расчёт цен со скидками.
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
// @Summary Получить цены со скидками
// @Description Возвращает цены всех сроков подписки с учётом партнёрской скидки и промокода.
// @Tags Pricing
// @Accept  json
// @Produce  json
// @Param request body models.AdjustedPricesRequest true "Пользователь, срок подписки и промокод"
// @Success 200 {object} checkout.PricesResult "Цены со скидками"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /get-adjusted-prices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pricing.adjusted"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.AdjustedPricesRequest
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

	result, err := h.service.AdjustedPrices(r.Context(), req.Username, req.PromoCode, req.SubscriptionType)
	if err != nil {
		log.Error("failed to compute adjusted prices", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not compute prices"))
		return
	}

	log.Info("prices computed",
		slog.String("username", req.Username),
		slog.Int("affiliate_number", result.AffiliateNumber))
	render.JSON(w, r, result)
}
