// Package paymentwebhook реализует HTTP-обработчик вебхуков платёжного шлюза.
//
// Подпись тела запроса проверяется по HMAC-SHA256 из заголовка X-Api-Signature,
// затем событие применяется через сервис сверки платежей. Повторная доставка
// одного события безопасна.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/storage/repository"
)

// События шлюза, которые обрабатывает вебхук.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
)

// Payload — тело вебхука платёжного шлюза.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		ID            string `json:"id"`
		InvoiceID     string `json:"invoice_id"`
		Status        string `json:"status"`
		PaymentMethod struct {
			Type string `json:"type"`
		} `json:"payment_method"`
	} `json:"object"`
}

// Service описывает интерфейс сверки платежей.
type Service interface {
	ReconcileSuccess(ctx context.Context, gatewayID string, paymentMethod *string) (*models.SubscriptionStatus, error)
	ReconcileFailure(ctx context.Context, gatewayID string) error
}

// Handler обрабатывает вебхуки платёжного шлюза.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// verifySignature проверяет подпись тела запроса (X-Api-Signature).
func (h *Handler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP принимает событие шлюза. Ответ 200 подтверждает доставку;
// на внутренних ошибках возвращается 500, чтобы шлюз повторил событие.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	gatewayID := payload.Object.ID
	if gatewayID == "" {
		gatewayID = payload.Object.InvoiceID
	}

	switch payload.Event {
	case EventPaymentSucceeded:
		var method *string
		if payload.Object.PaymentMethod.Type != "" {
			method = &payload.Object.PaymentMethod.Type
		}
		_, err = h.service.ReconcileSuccess(r.Context(), gatewayID, method)
	case EventPaymentCanceled:
		err = h.service.ReconcileFailure(r.Context(), gatewayID)
	default:
		log.Info("ignored webhook event", slog.String("event", payload.Event))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err != nil {
		// Вебхук может обогнать привязку идентификаторов шлюза при
		// создании счёта, поэтому неизвестный платёж уходит в повтор.
		if errors.Is(err, repository.ErrPaymentNotFound) {
			log.Error("webhook for unknown payment, requesting redelivery",
				slog.String("gateway_id", gatewayID))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed",
		slog.String("event", payload.Event),
		slog.String("gateway_id", gatewayID))
	w.WriteHeader(http.StatusOK)
}
