// Package subscription содержит бизнес-логику учёта подписки: квоты счетов,
// биллинговые циклы, апгрейды с накоплением кредитов и продления.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/invoice-billing/internal/lib/billingcycle"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/storage/repository"
)

// Ошибки валидации, видимые пользователю.
var (
	ErrUnknownTier       = errors.New("unknown subscription tier")
	ErrInvalidExtendDays = errors.New("extend days must be positive")
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// GetSubscription возвращает подписку или repository.ErrSubscriptionNotFound.
	GetSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	// CreateSubscription добавляет новую подписку.
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	// UpdateSubscription перезаписывает состояние подписки.
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	// ResetSubscriptionCycle обнуляет счётчик и записывает новый цикл.
	ResetSubscriptionCycle(ctx context.Context, userUID, monthYear string) error
	// IncrementInvoiceCount атомарно наращивает счётчик и возвращает новое значение.
	IncrementInvoiceCount(ctx context.Context, userUID string) (int, error)
	// ResetInvoiceCount обнуляет только счётчик.
	ResetInvoiceCount(ctx context.Context, userUID string) error
}

// Service реализует операции над подпиской одного пользователя.
type Service struct {
	repo SubscriptionRepository
	log  *slog.Logger
	now  func() time.Time
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// GetOrCreate возвращает подписку пользователя, создавая бесплатную при
// первом обращении. Отсутствие записи — ожидаемый случай, остальные ошибки
// хранилища пробрасываются.
func (s *Service) GetOrCreate(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "subscription.GetOrCreate"

	sub, err := s.repo.GetSubscription(ctx, userUID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	created := models.Subscription{
		UserUID:               userUID,
		Tier:                  models.TierFree,
		InvoiceLimit:          models.FreeTierLimit,
		CurrentMonthCount:     0,
		SubscriptionStartDate: now,
		SubscriptionEndDate:   nil,
		MonthYear:             billingcycle.CurrentCycle(now, now),
	}
	if err := s.repo.CreateSubscription(ctx, created); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created free subscription", slog.String("user_uid", userUID))
	return &created, nil
}

// EnsureCurrentCycle лениво чинит устаревший цикл: если кешированный
// идентификатор не совпадает с расчётным, счётчик обнуляется и цикл
// перезаписывается. Вызывается в начале каждой операции, зависящей от квоты;
// фонового планировщика сбросов нет.
func (s *Service) EnsureCurrentCycle(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	const op = "subscription.EnsureCurrentCycle"

	cycle := billingcycle.CurrentCycle(sub.SubscriptionStartDate, s.now())
	if sub.MonthYear == cycle {
		return sub, nil
	}

	if err := s.repo.ResetSubscriptionCycle(ctx, sub.UserUID, cycle); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.CurrentMonthCount = 0
	sub.MonthYear = cycle
	s.log.Info("billing cycle rolled over",
		slog.String("user_uid", sub.UserUID), slog.String("cycle", cycle))
	return sub, nil
}

// CanGenerateInvoice сообщает, остался ли у пользователя запас квоты
// в текущем цикле.
func (s *Service) CanGenerateInvoice(ctx context.Context, userUID string) (bool, error) {
	const op = "subscription.CanGenerateInvoice"

	sub, err := s.GetOrCreate(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	sub, err = s.EnsureCurrentCycle(ctx, sub)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return sub.CurrentMonthCount < sub.InvoiceLimit, nil
}

// IncrementInvoiceCount наращивает счётчик использования и возвращает новое
// значение. Лимит здесь не проверяется — вызывающая сторона обязана сначала
// спросить CanGenerateInvoice.
func (s *Service) IncrementInvoiceCount(ctx context.Context, userUID string) (int, error) {
	const op = "subscription.IncrementInvoiceCount"

	sub, err := s.GetOrCreate(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = s.EnsureCurrentCycle(ctx, sub); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	newCount, err := s.repo.IncrementInvoiceCount(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newCount, nil
}

// Upgrade применяет покупку тарифа. Неиспользованный остаток квоты активного
// оплаченного периода накапливается: два апгрейда внутри одного периода дают
// сумму лимитов обоих тарифов минус потраченное, оплаченный запас не сгорает.
func (s *Service) Upgrade(ctx context.Context, userUID, tier string) error {
	const op = "subscription.Upgrade"

	limit, ok := models.TierLimits[tier]
	if !ok {
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownTier, tier)
	}

	sub, err := s.GetOrCreate(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	if sub.Active(now) {
		// Активный оплаченный период: кредиты суммируются, срок продлевается
		// от старой даты окончания, якорь цикла не меняется.
		newLimit := sub.RemainingCredits() + limit
		newEnd := sub.SubscriptionEndDate.AddDate(0, 0, models.PaidPeriodDays)
		sub.InvoiceLimit = newLimit
		sub.SubscriptionEndDate = &newEnd
	} else {
		// Первый платёж или истёкший период: переноса нет, новый якорь.
		newEnd := now.AddDate(0, 0, models.PaidPeriodDays)
		sub.InvoiceLimit = limit
		sub.SubscriptionStartDate = now
		sub.SubscriptionEndDate = &newEnd
	}
	sub.Tier = tier
	sub.CurrentMonthCount = 0
	sub.MonthYear = billingcycle.CurrentCycle(sub.SubscriptionStartDate, now)

	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription upgraded",
		slog.String("user_uid", userUID),
		slog.String("tier", tier),
		slog.Int("invoice_limit", sub.InvoiceLimit))
	return nil
}

// Downgrade переводит подписку на бесплатный тариф. Счётчик использования
// не трогается: его поправит ближайший EnsureCurrentCycle.
func (s *Service) Downgrade(ctx context.Context, userUID string) error {
	const op = "subscription.Downgrade"

	sub, err := s.GetOrCreate(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sub.Tier = models.TierFree
	sub.InvoiceLimit = models.FreeTierLimit
	sub.SubscriptionEndDate = nil

	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription downgraded", slog.String("user_uid", userUID))
	return nil
}

// Extend продлевает оплаченный период на days дней от более позднего из
// "сейчас" и текущей даты окончания, поэтому продления строго аддитивны:
// extend(a); extend(b) эквивалентно extend(a+b).
func (s *Service) Extend(ctx context.Context, userUID string, days int) error {
	const op = "subscription.Extend"

	if days <= 0 {
		return fmt.Errorf("%s: %w: %d", op, ErrInvalidExtendDays, days)
	}

	sub, err := s.GetOrCreate(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	base := now
	if sub.SubscriptionEndDate != nil && sub.SubscriptionEndDate.After(now) {
		base = *sub.SubscriptionEndDate
	}
	newEnd := base.AddDate(0, 0, days)
	sub.SubscriptionEndDate = &newEnd

	if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription extended",
		slog.String("user_uid", userUID), slog.Int("days", days))
	return nil
}

// ResetInvoiceCounter обнуляет счётчик использования, остальные поля
// не меняются. Повторные вызовы — no-op.
func (s *Service) ResetInvoiceCounter(ctx context.Context, userUID string) error {
	const op = "subscription.ResetInvoiceCounter"

	if err := s.repo.ResetInvoiceCount(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriptionStatus возвращает срез состояния подписки для выдачи наружу.
func (s *Service) GetSubscriptionStatus(ctx context.Context, userUID string) (*models.SubscriptionStatus, error) {
	const op = "subscription.GetSubscriptionStatus"

	sub, err := s.GetOrCreate(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub, err = s.EnsureCurrentCycle(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.SubscriptionStatus{
		Tier:              sub.Tier,
		InvoiceLimit:      sub.InvoiceLimit,
		CurrentMonthCount: sub.CurrentMonthCount,
		NextResetDate:     billingcycle.NextResetDate(sub.SubscriptionStartDate, s.now()),
		ExpiresAt:         sub.SubscriptionEndDate,
	}, nil
}
