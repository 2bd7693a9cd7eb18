// Package remove реализует HTTP-обработчик удаления счёта пользователя.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/invoice-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/invoice-billing/internal/http/response"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/services/invoice"
)

// Service описывает интерфейс удаления счёта.
type Service interface {
	Remove(ctx context.Context, id int, userUID string) error
}

// Handler обрабатывает HTTP-запросы на удаление счетов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить счёт
// @Description Удаляет счёт пользователя по ID. Квота при этом не возвращается.
// @Tags Invoices
// @Produce  json
// @Param id path int true "ID счёта"
// @Success 200 {object} map[string]any "Счёт удалён"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Счёт не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		log.Error("invalid invoice id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid invoice id"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Remove(r.Context(), id, userUID); err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			log.Error("invoice not found", slog.Int("invoice_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("invoice not found"))
			return
		}
		log.Error("failed to remove invoice", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove invoice"))
		return
	}

	log.Info("invoice removed", slog.Int("invoice_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"removed_id": id,
	}))
}
