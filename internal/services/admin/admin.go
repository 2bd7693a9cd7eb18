// Package admin собирает статистику сервиса и выполняет ручные операции
// администратора над подписками.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// StatsRepository отдаёт агрегаты по базе.
type StatsRepository interface {
	CountUsers(ctx context.Context) (int, error)
	CountPaidSubscriptions(ctx context.Context) (int, error)
	CountInvoices(ctx context.Context) (int, error)
	SumCompletedPayments(ctx context.Context) (int64, error)
}

// SubscriptionManager — ручные операции над подпиской пользователя.
type SubscriptionManager interface {
	Extend(ctx context.Context, userUID string, days int) error
	Downgrade(ctx context.Context, userUID string) error
	ResetInvoiceCounter(ctx context.Context, userUID string) error
}

// Service — админские операции поверх хранилища и подписок.
type Service struct {
	stats         StatsRepository
	subscriptions SubscriptionManager
	log           *slog.Logger
}

// New создает новый экземпляр Service.
func New(stats StatsRepository, subscriptions SubscriptionManager, log *slog.Logger) *Service {
	return &Service{
		stats:         stats,
		subscriptions: subscriptions,
		log:           log,
	}
}

// GetStats возвращает агрегаты: пользователи, платные подписки, счета, выручка.
func (s *Service) GetStats(ctx context.Context) (*models.AdminStats, error) {
	const op = "admin.GetStats"

	users, err := s.stats.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paid, err := s.stats.CountPaidSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	invoices, err := s.stats.CountInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	revenue, err := s.stats.SumCompletedPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AdminStats{
		TotalUsers:        users,
		PaidSubscriptions: paid,
		TotalInvoices:     invoices,
		Revenue:           revenue,
	}, nil
}

// ExtendSubscription продлевает оплаченный период пользователя.
func (s *Service) ExtendSubscription(ctx context.Context, userUID string, days int) error {
	const op = "admin.ExtendSubscription"

	if err := s.subscriptions.Extend(ctx, userUID, days); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin extended subscription",
		slog.String("user_uid", userUID), slog.Int("days", days))
	return nil
}

// DowngradeSubscription принудительно переводит пользователя на бесплатный тариф.
func (s *Service) DowngradeSubscription(ctx context.Context, userUID string) error {
	const op = "admin.DowngradeSubscription"

	if err := s.subscriptions.Downgrade(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin downgraded subscription", slog.String("user_uid", userUID))
	return nil
}

// ResetInvoiceCounter обнуляет месячный счётчик счетов пользователя.
func (s *Service) ResetInvoiceCounter(ctx context.Context, userUID string) error {
	const op = "admin.ResetInvoiceCounter"

	if err := s.subscriptions.ResetInvoiceCounter(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin reset invoice counter", slog.String("user_uid", userUID))
	return nil
}
