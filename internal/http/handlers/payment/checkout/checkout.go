// Package checkout реализует HTTP-обработчик покупки тарифа: создаёт
// pending-платёж и счёт в платёжном шлюзе, возвращает ссылку на оплату.
package checkout

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
	"github.com/magabrotheeeer/invoice-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/invoice-billing/internal/services/payment"
)

// Request — структура входных данных для покупки тарифа.
type Request struct {
	Tier string `json:"tier" validate:"required"`
}

// Service описывает интерфейс бизнес-логики покупки тарифа.
type Service interface {
	Checkout(ctx context.Context, userUID, tier string) (*payment.CheckoutResult, error)
}

// Handler обрабатывает HTTP-запросы на покупку тарифа.
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
// @Summary Покупка тарифа
// @Description Создает платёж и счёт в платёжном шлюзе. Возвращает ссылку на оплату.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф для покупки"
// @Success 200 {object} payment.CheckoutResult "Ссылка на оплату"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Платёжный шлюз недоступен"
// @Security BearerAuth
// @Router /payments/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Checkout(r.Context(), userUID, req.Tier)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownTier):
			log.Error("unknown tier", slog.String("tier", req.Tier))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown tier"))
		case errors.Is(err, paymentprovider.ErrGatewayUnavailable):
			log.Error("payment gateway unavailable", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway unavailable, try again later"))
		default:
			log.Error("checkout failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create payment"))
		}
		return
	}

	log.Info("checkout created", slog.String("payment_id", result.PaymentID))
	render.JSON(w, r, response.OKWithData(result))
}
