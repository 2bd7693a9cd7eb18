package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// GetSubscription возвращает подписку пользователя или ErrSubscriptionNotFound.
func (s *Storage) GetSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, tier, invoice_limit, current_month_count,
				subscription_start_date, subscription_end_date, month_year
			  FROM subscriptions WHERE user_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.Subscription
	if err := row.Scan(&result.UserUID, &result.Tier, &result.InvoiceLimit,
		&result.CurrentMonthCount, &result.SubscriptionStartDate,
		&result.SubscriptionEndDate, &result.MonthYear); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// CreateSubscription вставляет новую запись подписки.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, tier, invoice_limit, current_month_count,
				  subscription_start_date, subscription_end_date, month_year)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, query,
		sub.UserUID, sub.Tier, sub.InvoiceLimit, sub.CurrentMonthCount,
		sub.SubscriptionStartDate, sub.SubscriptionEndDate, sub.MonthYear)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscription перезаписывает тариф, квоту, счётчик и границы периода.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET tier = $1, invoice_limit = $2, current_month_count = $3,
			      subscription_start_date = $4, subscription_end_date = $5, month_year = $6
			  WHERE user_uid = $7`
	result, err := s.DB.ExecContext(ctx, query,
		sub.Tier, sub.InvoiceLimit, sub.CurrentMonthCount,
		sub.SubscriptionStartDate, sub.SubscriptionEndDate, sub.MonthYear, sub.UserUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	return nil
}

// ResetSubscriptionCycle сбрасывает счётчик и записывает новый идентификатор цикла.
func (s *Storage) ResetSubscriptionCycle(ctx context.Context, userUID, monthYear string) error {
	const op = "storage.ResetSubscriptionCycle"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET current_month_count = 0, month_year = $1
			  WHERE user_uid = $2`
	_, err := s.DB.ExecContext(ctx, query, monthYear, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IncrementInvoiceCount наращивает счётчик одной командой и возвращает новое значение.
func (s *Storage) IncrementInvoiceCount(ctx context.Context, userUID string) (int, error) {
	const op = "storage.IncrementInvoiceCount"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET current_month_count = current_month_count + 1
			  WHERE user_uid = $1
			  RETURNING current_month_count`
	var newCount int
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&newCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newCount, nil
}

// ResetInvoiceCount обнуляет только счётчик использования.
func (s *Storage) ResetInvoiceCount(ctx context.Context, userUID string) error {
	const op = "storage.ResetInvoiceCount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET current_month_count = 0 WHERE user_uid = $1`
	_, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountPaidSubscriptions считает подписки с активным оплаченным периодом.
func (s *Storage) CountPaidSubscriptions(ctx context.Context) (int, error) {
	const op = "storage.CountPaidSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM subscriptions
			  WHERE subscription_end_date IS NOT NULL AND subscription_end_date > NOW()`
	var count int
	if err := s.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
