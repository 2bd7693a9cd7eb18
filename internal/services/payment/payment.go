// Package payment реализует платёжный цикл: создание счёта в шлюзе,
// сверку результата оплаты и идемпотентное применение апгрейда подписки.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/paymentprovider"
)

// Ошибки платёжного цикла.
var (
	// ErrUnknownTier — запрошен тариф без цены.
	ErrUnknownTier = errors.New("unknown paid tier")
	// ErrInconsistentState — платёж зафиксирован как completed, но апгрейд
	// подписки не применился. Требует ручного вмешательства, поэтому
	// отличим от обычных ошибок.
	ErrInconsistentState = errors.New("payment completed but subscription upgrade failed")
	// ErrPaymentPending — шлюз ещё не видит оплату по этой транзакции.
	ErrPaymentPending = errors.New("payment is still pending on gateway side")
)

// PaymentRepository определяет методы хранения платёжных транзакций.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p models.PaymentTransaction) error
	AttachGatewayID(ctx context.Context, paymentID, gatewayInvoiceID string, gatewayPaymentID *string) error
	FindPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentTransaction, error)
	CompletePayment(ctx context.Context, paymentID string, paymentMethod *string, now time.Time) (bool, error)
	FailPayment(ctx context.Context, paymentID string) (bool, error)
	ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentTransaction, error)
}

// UserProvider отдаёт данные пользователя для квитанции.
type UserProvider interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
}

// SubscriptionManager применяет оплаченный тариф к подписке и отдаёт
// её текущее состояние.
type SubscriptionManager interface {
	Upgrade(ctx context.Context, userUID, tier string) error
	GetSubscriptionStatus(ctx context.Context, userUID string) (*models.SubscriptionStatus, error)
}

// GatewayClient создаёт счета на оплату во внешнем шлюзе.
type GatewayClient interface {
	CreateInvoice(ctx context.Context, req paymentprovider.CreateInvoiceRequest) (*paymentprovider.CreateInvoiceResponse, error)
}

// TransactionFinder ищет транзакцию в списке шлюза при ручной проверке оплаты.
type TransactionFinder interface {
	FindTransaction(ctx context.Context, gatewayID string) (*paymentprovider.Transaction, error)
}

// ReceiptPublisher отправляет событие о завершённом платеже в очередь квитанций.
type ReceiptPublisher interface {
	PublishReceipt(event models.ReceiptEvent) error
}

// CheckoutResult — результат создания счёта на оплату тарифа.
type CheckoutResult struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}

// Service связывает локальный реестр платежей, шлюз и подписки.
type Service struct {
	repo          PaymentRepository
	users         UserProvider
	subscriptions SubscriptionManager
	gateway       GatewayClient
	finder        TransactionFinder
	receipts      ReceiptPublisher
	log           *slog.Logger
	now           func() time.Time
}

// New создает новый экземпляр Service. receipts может быть nil,
// тогда квитанции не отправляются.
func New(repo PaymentRepository, users UserProvider, subscriptions SubscriptionManager,
	gateway GatewayClient, finder TransactionFinder, receipts ReceiptPublisher,
	log *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		users:         users,
		subscriptions: subscriptions,
		gateway:       gateway,
		finder:        finder,
		receipts:      receipts,
		log:           log,
		now:           time.Now,
	}
}

// Checkout создаёт pending-платёж, выставляет счёт в шлюзе и привязывает
// его идентификаторы к платежу. Локальная запись создаётся до похода в шлюз.
// При сбое привязки остаётся pending-платёж без идентификаторов шлюза:
// пользователь повторяет checkout, вебхук по непривязанному счёту уходит
// в повтор, а неоплаченный счёт в шлюзе истекает сам по expiry.
func (s *Service) Checkout(ctx context.Context, userUID, tier string) (*CheckoutResult, error) {
	const op = "payment.Checkout"

	price, ok := models.TierPrices[tier]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownTier, tier)
	}

	p := models.PaymentTransaction{
		ID:        uuid.NewString(),
		UserUID:   userUID,
		Amount:    price,
		Tier:      tier,
		Status:    models.PaymentStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoice, err := s.gateway.CreateInvoice(ctx, paymentprovider.CreateInvoiceRequest{
		Customer:    userUID,
		Amount:      price,
		Description: fmt.Sprintf("Subscription tier %s", tier),
		ExpiryHours: 24,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.AttachGatewayID(ctx, p.ID, invoice.InvoiceID, &invoice.TransactionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("checkout created",
		slog.String("payment_id", p.ID),
		slog.String("user_uid", userUID),
		slog.String("tier", tier))
	return &CheckoutResult{PaymentID: p.ID, PaymentURL: invoice.PaymentURL}, nil
}

// ReconcileSuccess применяет успешную оплату: переводит платёж в completed,
// апгрейдит подписку и возвращает её итоговый срез. Повторные доставки одного
// события безопасны: условное обновление статуса срабатывает не больше одного
// раза, проигравшая доставка получает тот же срез подписки без побочных
// эффектов.
func (s *Service) ReconcileSuccess(ctx context.Context, gatewayID string, paymentMethod *string) (*models.SubscriptionStatus, error) {
	const op = "payment.ReconcileSuccess"

	p, err := s.repo.FindPaymentByGatewayID(ctx, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	completed, err := s.repo.CompletePayment(ctx, p.ID, paymentMethod, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !completed {
		s.log.Info("payment already in terminal state, skipping",
			slog.String("payment_id", p.ID), slog.String("status", p.Status))
		status, err := s.subscriptions.GetSubscriptionStatus(ctx, p.UserUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return status, nil
	}

	if err := s.subscriptions.Upgrade(ctx, p.UserUID, p.Tier); err != nil {
		// Деньги приняты, тариф не применён. Платёж уже completed, повтор
		// вебхука ничего не исправит.
		s.log.Error("subscription upgrade failed after payment completion",
			slog.String("payment_id", p.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInconsistentState, err)
	}

	s.publishReceipt(ctx, p)
	s.log.Info("payment reconciled",
		slog.String("payment_id", p.ID),
		slog.String("user_uid", p.UserUID),
		slog.String("tier", p.Tier))

	status, err := s.subscriptions.GetSubscriptionStatus(ctx, p.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}

// ReconcileFailure переводит платёж в failed. Подписка не меняется.
// Для уже завершённого платежа событие игнорируется.
func (s *Service) ReconcileFailure(ctx context.Context, gatewayID string) error {
	const op = "payment.ReconcileFailure"

	p, err := s.repo.FindPaymentByGatewayID(ctx, gatewayID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	failed, err := s.repo.FailPayment(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !failed {
		s.log.Info("payment already in terminal state, skipping",
			slog.String("payment_id", p.ID), slog.String("status", p.Status))
		return nil
	}
	s.log.Info("payment marked failed", slog.String("payment_id", p.ID))
	return nil
}

// VerifyPayment — ручная сверка: ищет транзакцию в списке шлюза и применяет
// её исход теми же идемпотентными переходами, что и вебхук. Возвращает
// итоговый статус платежа и, для успешной оплаты, срез подписки.
func (s *Service) VerifyPayment(ctx context.Context, gatewayID string) (string, *models.SubscriptionStatus, error) {
	const op = "payment.VerifyPayment"

	tx, err := s.finder.FindTransaction(ctx, gatewayID)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	switch tx.Status {
	case paymentprovider.TxStatusPaid:
		var method *string
		if tx.PaymentMethod != "" {
			method = &tx.PaymentMethod
		}
		status, err := s.ReconcileSuccess(ctx, gatewayID, method)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
		return models.PaymentStatusCompleted, status, nil
	case paymentprovider.TxStatusFailed:
		if err := s.ReconcileFailure(ctx, gatewayID); err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
		return models.PaymentStatusFailed, nil, nil
	default:
		return models.PaymentStatusPending, nil, fmt.Errorf("%s: %w", op, ErrPaymentPending)
	}
}

// ListPayments возвращает историю платежей пользователя.
func (s *Service) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentTransaction, error) {
	const op = "payment.ListPayments"

	payments, err := s.repo.ListPayments(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// publishReceipt отправляет событие для письма-квитанции. Доставка
// best-effort: ошибка логируется, но платёж уже применён.
func (s *Service) publishReceipt(ctx context.Context, p *models.PaymentTransaction) {
	if s.receipts == nil {
		return
	}

	user, err := s.users.GetUserByUID(ctx, p.UserUID)
	if err != nil {
		s.log.Error("failed to load user for receipt",
			slog.String("user_uid", p.UserUID), sl.Err(err))
		return
	}

	event := models.ReceiptEvent{
		UserUID:     p.UserUID,
		Email:       user.Email,
		Tier:        p.Tier,
		Amount:      p.Amount,
		CompletedAt: s.now(),
	}
	if err := s.receipts.PublishReceipt(event); err != nil {
		s.log.Error("failed to publish receipt event",
			slog.String("user_uid", p.UserUID), sl.Err(err))
	}
}
