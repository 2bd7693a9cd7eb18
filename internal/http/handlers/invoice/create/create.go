// Package create реализует HTTP-обработчик выставления нового счёта.
//
// Принимает JSON с данными счёта, валидирует их, извлекает UID пользователя
// из контекста и вызывает бизнес-логику, которая проверяет месячную квоту.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/invoice-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/invoice-billing/internal/http/response"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/services/invoice"
)

// Service описывает интерфейс бизнес-логики выставления счёта.
type Service interface {
	Create(ctx context.Context, userUID string, req models.DummyInvoice) (*models.Invoice, error)
}

// Handler обрабатывает HTTP-запросы на выставление счетов.
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
// @Summary Выставить счёт
// @Description Создает счёт клиенту пользователя, если месячная квота тарифа не исчерпана.
// @Tags Invoices
// @Accept  json
// @Produce  json
// @Param request body models.DummyInvoice true "Данные нового счёта"
// @Success 200 {object} map[string]any "Созданный счёт"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или дата"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Квота счетов исчерпана"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /invoices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyInvoice
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Create(r.Context(), userUID, req)
	if err != nil {
		switch {
		case errors.Is(err, invoice.ErrQuotaExceeded):
			log.Error("invoice quota exceeded", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("monthly invoice quota exceeded, upgrade your plan"))
		case errors.Is(err, invoice.ErrInvalidDueDate):
			log.Error("invalid due date", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid due date"))
		default:
			log.Error("failed to create invoice", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create invoice"))
		}
		return
	}

	log.Info("invoice created", slog.Int("invoice_id", result.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"invoice_id": result.ID,
		"number":     result.Number,
	}))
}
