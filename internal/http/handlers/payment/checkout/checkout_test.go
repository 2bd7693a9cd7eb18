package checkout

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/invoice-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/invoice-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/invoice-billing/internal/services/payment"
)

// MockService реализует интерфейс checkout.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Checkout(ctx context.Context, userUID, tier string) (*payment.CheckoutResult, error) {
	args := m.Called(ctx, userUID, tier)
	if result := args.Get(0); result != nil {
		return result.(*payment.CheckoutResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCheckoutHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная покупка",
			body: `{"tier":"premium"}`,
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "uid-1", "premium").
					Return(&payment.CheckoutResult{
						PaymentID:  "pay-1",
						PaymentURL: "https://pay.example.com/inv-1",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"payment_url"`,
		},
		{
			name: "неизвестный тариф",
			body: `{"tier":"gold"}`,
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "uid-1", "gold").
					Return(nil, payment.ErrUnknownTier)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `unknown tier`,
		},
		{
			name: "шлюз недоступен",
			body: `{"tier":"premium"}`,
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "uid-1", "premium").
					Return(nil, paymentprovider.ErrGatewayUnavailable)
			},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "пустой тариф",
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

			req := httptest.NewRequest(http.MethodPost, "/payments/checkout", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
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
