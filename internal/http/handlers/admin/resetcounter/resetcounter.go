// Package resetcounter реализует HTTP-обработчик ручного сброса месячного
// счётчика счетов пользователя.
package resetcounter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/invoice-billing/internal/http/response"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
)

// Service описывает интерфейс сброса счётчика.
type Service interface {
	ResetInvoiceCounter(ctx context.Context, userUID string) error
}

// Handler обрабатывает HTTP-запросы на сброс счётчика.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сбросить счётчик счетов
// @Description Обнуляет использование квоты в текущем цикле. Повторный вызов безопасен.
// @Tags Admin
// @Produce  json
// @Param uid path string true "UID пользователя"
// @Success 200 {object} map[string]any "Счётчик сброшен"
// @Failure 400 {object} response.ErrorResponse "Некорректный UID"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/users/{uid}/reset-counter [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.resetcounter"

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

	if err := h.service.ResetInvoiceCounter(r.Context(), userUID); err != nil {
		log.Error("failed to reset invoice counter", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not reset invoice counter"))
		return
	}

	log.Info("invoice counter reset", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_uid": userUID,
	}))
}
