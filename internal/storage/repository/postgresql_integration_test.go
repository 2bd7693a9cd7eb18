package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

func TestStorage_IncrementInvoiceCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	userUID := createTestUser(t, storage)
	createTestSubscription(t, storage, userUID, 10, 0, "2024-03-01")

	ctx := context.Background()

	// Параллельные инкременты не должны терять обновления.
	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.IncrementInvoiceCount(ctx, userUID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sub, err := storage.GetSubscription(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, workers, sub.CurrentMonthCount)
}

func TestStorage_ResetSubscriptionCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	userUID := createTestUser(t, storage)
	createTestSubscription(t, storage, userUID, 10, 7, "2024-02-01")

	ctx := context.Background()
	require.NoError(t, storage.ResetSubscriptionCycle(ctx, userUID, "2024-03-01"))

	sub, err := storage.GetSubscription(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.CurrentMonthCount)
	assert.Equal(t, "2024-03-01", sub.MonthYear)
}

func TestStorage_CompletePayment_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	userUID := createTestUser(t, storage)
	ctx := context.Background()

	paymentID := uuid.NewString()
	require.NoError(t, storage.CreatePayment(ctx, models.PaymentTransaction{
		ID:        paymentID,
		UserUID:   userUID,
		Amount:    99900,
		Tier:      models.TierPremium,
		Status:    models.PaymentStatusPending,
		CreatedAt: time.Now(),
	}))

	method := "card"
	now := time.Now()

	completed, err := storage.CompletePayment(ctx, paymentID, &method, now)
	require.NoError(t, err)
	assert.True(t, completed, "first completion wins")

	// Вторая доставка того же события проигрывает условному обновлению.
	completed, err = storage.CompletePayment(ctx, paymentID, &method, now)
	require.NoError(t, err)
	assert.False(t, completed, "second completion is a no-op")

	// Провал после завершения тоже невозможен.
	failed, err := storage.FailPayment(ctx, paymentID)
	require.NoError(t, err)
	assert.False(t, failed)
}

func TestStorage_AttachGatewayID_OneTime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	userUID := createTestUser(t, storage)
	ctx := context.Background()

	paymentID := uuid.NewString()
	require.NoError(t, storage.CreatePayment(ctx, models.PaymentTransaction{
		ID:        paymentID,
		UserUID:   userUID,
		Amount:    99900,
		Tier:      models.TierPremium,
		Status:    models.PaymentStatusPending,
		CreatedAt: time.Now(),
	}))

	gatewayPaymentID := "tx-1"
	require.NoError(t, storage.AttachGatewayID(ctx, paymentID, "inv-1", &gatewayPaymentID))

	// Повторная привязка не проходит.
	err := storage.AttachGatewayID(ctx, paymentID, "inv-other", &gatewayPaymentID)
	require.Error(t, err)

	// Поиск работает по обоим идентификаторам шлюза.
	byInvoice, err := storage.FindPaymentByGatewayID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, paymentID, byInvoice.ID)

	byPayment, err := storage.FindPaymentByGatewayID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, paymentID, byPayment.ID)

	_, err = storage.FindPaymentByGatewayID(ctx, "unknown")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestStorage_InvoiceLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	userUID := createTestUser(t, storage)
	otherUID := createTestUser(t, storage)
	ctx := context.Background()

	id, err := storage.CreateInvoice(ctx, models.Invoice{
		UserUID:     userUID,
		Number:      "INV-001",
		ClientName:  "Acme LLC",
		ClientEmail: "billing@acme.example",
		Amount:      150000,
		TaxPercent:  20,
		IssuedAt:    time.Now(),
		DueDate:     time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	require.Greater(t, id, 0)

	invoices, err := storage.ListInvoices(ctx, userUID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	// Чужой счёт удалить нельзя.
	removed, err := storage.RemoveInvoice(ctx, id, otherUID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = storage.RemoveInvoice(ctx, id, userUID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
