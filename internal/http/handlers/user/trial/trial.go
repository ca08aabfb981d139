// Package trial реализует HTTP-обработчик выдачи пробного периода.
package trial

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
	"github.com/magabrotheeeer/subscription-payments/internal/services/subscription"
)

// Service описывает интерфейс бизнес-логики выдачи пробного периода.
type Service interface {
	RequestTrial(ctx context.Context, username string) (*subscription.TrialResult, error)
}

// Handler управляет HTTP-запросами на выдачу пробного периода.
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
// @Summary Запросить пробный период
// @Description Активирует пробный период для нового пользователя. Повторная выдача невозможна.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.TrialRequest true "Имя пользователя"
// @Success 200 {object} subscription.TrialResult "Результат запроса"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /request-trial [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.trial"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.TrialRequest
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

	result, err := h.service.RequestTrial(r.Context(), req.Username)
	if err != nil {
		log.Error("failed to request trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not request trial"))
		return
	}

	log.Info("trial requested",
		slog.String("username", req.Username),
		slog.Bool("success", result.Success))
	render.JSON(w, r, result)
}
