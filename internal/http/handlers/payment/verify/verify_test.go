package verify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/invoice-billing/internal/services/payment"
)

// MockService реализует интерфейс verify.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) VerifyPayment(ctx context.Context, gatewayID string) (string, *models.SubscriptionStatus, error) {
	args := m.Called(ctx, gatewayID)
	var sub *models.SubscriptionStatus
	if s := args.Get(1); s != nil {
		sub = s.(*models.SubscriptionStatus)
	}
	return args.String(0), sub, args.Error(2)
}

func TestVerifyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	expiresAt := time.Date(2024, time.April, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "оплата подтверждена, в ответе срез подписки",
			body: `{"gateway_id":"inv-1"}`,
			setupMock: func(m *MockService) {
				m.On("VerifyPayment", mock.Anything, "inv-1").
					Return(models.PaymentStatusCompleted, &models.SubscriptionStatus{
						Tier:         models.TierPremium,
						InvoiceLimit: models.TierLimits[models.TierPremium],
						ExpiresAt:    &expiresAt,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"tier":"premium"`,
		},
		{
			name: "оплата ещё не прошла",
			body: `{"gateway_id":"inv-2"}`,
			setupMock: func(m *MockService) {
				m.On("VerifyPayment", mock.Anything, "inv-2").
					Return(models.PaymentStatusPending, nil, payment.ErrPaymentPending)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"pending"`,
		},
		{
			name: "транзакция не найдена",
			body: `{"gateway_id":"ghost"}`,
			setupMock: func(m *MockService) {
				m.On("VerifyPayment", mock.Anything, "ghost").
					Return("", nil, paymentprovider.ErrTransactionNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "пустой идентификатор",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}
