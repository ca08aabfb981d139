// Package verify реализует HTTP-обработчик проверки статуса подписки.
//
// Handler принимает JSON-запрос с именем пользователя, валидирует его,
// вызывает бизнес-логику проверки подписки и возвращает клиенту статус
// доступа вместе с партнёрским счётчиком и доступностью пробного периода.
package verify

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

// Service описывает интерфейс бизнес-логики проверки подписки.
type Service interface {
	VerifyUser(ctx context.Context, username string) (*subscription.VerifyResult, error)
}

// Handler управляет HTTP-запросами на проверку статуса подписки.
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
// @Summary Проверить статус подписки пользователя
// @Description Возвращает статус доступа, число приглашённых с действующей подпиской и доступность пробного периода.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.VerifyUserRequest true "Имя пользователя"
// @Success 200 {object} subscription.VerifyResult "Статус подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /verify-user [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.VerifyUserRequest
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

	result, err := h.service.VerifyUser(r.Context(), req.Username)
	if err != nil {
		log.Error("failed to verify user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not verify user"))
		return
	}

	log.Info("user verified",
		slog.String("username", req.Username),
		slog.Bool("is_valid", result.IsValid))
	render.JSON(w, r, result)
}
