// Package verify реализует HTTP-обработчик ручной проверки оплаты:
// пользователь оплатил счёт, но вебхук ещё не дошёл или потерялся.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/invoice-billing/internal/http/response"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/invoice-billing/internal/services/payment"
)

// Request — структура входных данных для проверки оплаты.
type Request struct {
	GatewayID string `json:"gateway_id" validate:"required"`
}

// Service описывает интерфейс бизнес-логики сверки платежа.
type Service interface {
	VerifyPayment(ctx context.Context, gatewayID string) (string, *models.SubscriptionStatus, error)
}

// Handler обрабатывает HTTP-запросы на проверку оплаты.
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
// @Summary Проверка оплаты
// @Description Сверяет платёж со списком транзакций шлюза и применяет его исход.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор транзакции или счёта шлюза"
// @Success 200 {object} map[string]any "Итоговый статус платежа и срез подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Транзакция не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Платёжный шлюз недоступен"
// @Security BearerAuth
// @Router /payments/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"

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

	status, sub, err := h.service.VerifyPayment(r.Context(), req.GatewayID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPaymentPending):
			// Оплата ещё не прошла, это не ошибка запроса.
			render.JSON(w, r, response.OKWithData(map[string]any{"status": status}))
		case errors.Is(err, paymentprovider.ErrTransactionNotFound):
			log.Error("transaction not found", slog.String("gateway_id", req.GatewayID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("transaction not found"))
		case errors.Is(err, paymentprovider.ErrGatewayUnavailable):
			log.Error("payment gateway unavailable", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment gateway unavailable, try again later"))
		default:
			log.Error("verification failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not verify payment"))
		}
		return
	}

	log.Info("payment verified", slog.String("gateway_id", req.GatewayID), slog.String("status", status))
	data := map[string]any{"status": status}
	if sub != nil {
		data["subscription"] = sub
	}
	render.JSON(w, r, response.OKWithData(data))
}
