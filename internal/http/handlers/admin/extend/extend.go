// Package extend реализует HTTP-обработчик ручного продления подписки.
package extend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/invoice-billing/internal/http/response"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/services/subscription"
)

// Request — структура входных данных для продления.
type Request struct {
	Days int `json:"days" validate:"required,gt=0"`
}

// Service описывает интерфейс продления подписки.
type Service interface {
	ExtendSubscription(ctx context.Context, userUID string, days int) error
}

// Handler обрабатывает HTTP-запросы на продление подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Продлить подписку пользователя
// @Description Продлевает оплаченный период на заданное число дней от текущей даты окончания.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param uid path string true "UID пользователя"
// @Param request body Request true "Число дней"
// @Success 200 {object} map[string]any "Подписка продлена"
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/users/{uid}/extend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.extend"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := chi.URLParam(r, "uid")
	if userUID == "" {
		log.Error("missing user uid")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing user uid"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
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

	if err := h.service.ExtendSubscription(r.Context(), userUID, req.Days); err != nil {
		if errors.Is(err, subscription.ErrInvalidExtendDays) {
			log.Error("invalid extend days", slog.Int("days", req.Days))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("days must be positive"))
			return
		}
		log.Error("failed to extend subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not extend subscription"))
		return
	}

	log.Info("subscription extended", slog.String("user_uid", userUID), slog.Int("days", req.Days))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_uid": userUID,
		"days":     req.Days,
	}))
}
