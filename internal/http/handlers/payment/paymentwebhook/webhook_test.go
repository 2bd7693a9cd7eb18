package paymentwebhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/storage/repository"
)

// MockService реализует интерфейс paymentwebhook.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ReconcileSuccess(ctx context.Context, gatewayID string, paymentMethod *string) (*models.SubscriptionStatus, error) {
	args := m.Called(ctx, gatewayID, paymentMethod)
	if s := args.Get(0); s != nil {
		return s.(*models.SubscriptionStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) ReconcileFailure(ctx context.Context, gatewayID string) error {
	args := m.Called(ctx, gatewayID)
	return args.Error(0)
}

const testSecret = "webhook-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		signature      func([]byte) string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "успешный платёж",
			body: `{"event":"payment.succeeded","object":{"id":"tx-1","payment_method":{"type":"card"}}}`,
			signature: sign,
			setupMock: func(m *MockService) {
				m.On("ReconcileSuccess", mock.Anything, "tx-1", mock.Anything).
					Return(&models.SubscriptionStatus{Tier: "premium"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "отменённый платёж",
			body: `{"event":"payment.canceled","object":{"id":"tx-2"}}`,
			signature: sign,
			setupMock: func(m *MockService) {
				m.On("ReconcileFailure", mock.Anything, "tx-2").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "неверная подпись",
			body:           `{"event":"payment.succeeded","object":{"id":"tx-1"}}`,
			signature:      func(_ []byte) string { return "bogus" },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "незнакомое событие игнорируется",
			body:           `{"event":"payment.refund_pending","object":{"id":"tx-3"}}`,
			signature:      sign,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
		},
		{
			name: "неизвестный платёж уходит в повтор",
			body: `{"event":"payment.succeeded","object":{"id":"tx-ghost"}}`,
			signature: sign,
			setupMock: func(m *MockService) {
				m.On("ReconcileSuccess", mock.Anything, "tx-ghost", mock.Anything).
					Return(nil, repository.ErrPaymentNotFound)
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "внутренняя ошибка ведёт к повтору",
			body: `{"event":"payment.succeeded","object":{"id":"tx-4"}}`,
			signature: sign,
			setupMock: func(m *MockService) {
				m.On("ReconcileSuccess", mock.Anything, "tx-4", mock.Anything).
					Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService, testSecret)

			body := []byte(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
			req.Header.Set("X-Api-Signature", tt.signature(body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), new(MockService), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		bytes.NewReader([]byte(`{"event":"payment.succeeded"}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
