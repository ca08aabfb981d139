// Package create реализует HTTP-обработчик создания счёта на оплату подписки.
//
// Handler принимает JSON-запрос с данными заказа, валидирует их и вызывает
// бизнес-логику оформления оплаты. При скидке выше порога бесплатной выдачи
// подписка начисляется сразу и ссылка на оплату не возвращается.
package create

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

// Service описывает интерфейс бизнес-логики оформления оплаты.
type Service interface {
	CreateInvoice(ctx context.Context, username, subscriptionType, currency, promoCode string, referralUsername *string) (*checkout.InvoiceResult, error)
}

// Handler управляет HTTP-запросами на создание счёта.
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
// @Summary Создать счёт на оплату подписки
// @Description Проверяет и списывает промокод, считает цену со скидками и создаёт счёт у платёжного провайдера.
// @Tags Invoices
// @Accept  json
// @Produce  json
// @Param request body models.CreateInvoiceRequest true "Данные заказа"
// @Success 200 {object} checkout.InvoiceResult "Результат создания счёта"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /create-invoice [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateInvoiceRequest
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

	var referral *string
	if req.ReferralUsername != "" {
		referral = &req.ReferralUsername
	}

	result, err := h.service.CreateInvoice(r.Context(),
		req.Username, req.SubscriptionType, req.Currency, req.PromoCode, referral)
	if err != nil {
		log.Error("failed to create invoice", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create invoice"))
		return
	}

	log.Info("invoice request processed",
		slog.String("username", req.Username),
		slog.Bool("success", result.Success),
		slog.Bool("free", result.Free))
	render.JSON(w, r, result)
}
