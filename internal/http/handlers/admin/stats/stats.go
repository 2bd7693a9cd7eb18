// Package stats реализует HTTP-обработчик админской статистики сервиса.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/invoice-billing/internal/http/response"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// Service описывает интерфейс сбора статистики.
type Service interface {
	GetStats(ctx context.Context) (*models.AdminStats, error)
}

// Handler обрабатывает HTTP-запросы статистики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статистика сервиса
// @Description Возвращает количество пользователей, платных подписок, счетов и выручку.
// @Tags Admin
// @Produce  json
// @Success 200 {object} models.AdminStats "Агрегаты"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.stats"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	result, err := h.service.GetStats(r.Context())
	if err != nil {
		log.Error("failed to collect stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not collect stats"))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
