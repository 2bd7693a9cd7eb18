package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// CreatePayment сохраняет новую платёжную транзакцию.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentTransaction) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (id, user_uid, gateway_invoice_id, gateway_payment_id,
				  amount, tier, status, payment_method, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.DB.ExecContext(ctx, query,
		p.ID, p.UserUID, p.GatewayInvoiceID, p.GatewayPaymentID,
		p.Amount, p.Tier, p.Status, p.PaymentMethod, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AttachGatewayID один раз записывает идентификаторы шлюза в платёж.
// Повторная запись невозможна: условие WHERE пропускает только пустые поля.
func (s *Storage) AttachGatewayID(ctx context.Context, paymentID, gatewayInvoiceID string, gatewayPaymentID *string) error {
	const op = "storage.AttachGatewayID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET gateway_invoice_id = $1, gateway_payment_id = $2
			  WHERE id = $3 AND gateway_invoice_id IS NULL`
	result, err := s.DB.ExecContext(ctx, query, gatewayInvoiceID, gatewayPaymentID, paymentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: gateway id already attached or %w", op, ErrPaymentNotFound)
	}
	return nil
}

// FindPaymentByGatewayID ищет платёж по любому из двух идентификаторов шлюза.
func (s *Storage) FindPaymentByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentTransaction, error) {
	const op = "storage.FindPaymentByGatewayID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, gateway_invoice_id, gateway_payment_id, amount, tier,
				status, payment_method, created_at, completed_at, verified_at
			  FROM payments
			  WHERE gateway_invoice_id = $1 OR gateway_payment_id = $1`
	row := s.DB.QueryRowContext(ctx, query, gatewayID)

	var result models.PaymentTransaction
	if err := row.Scan(&result.ID, &result.UserUID, &result.GatewayInvoiceID,
		&result.GatewayPaymentID, &result.Amount, &result.Tier, &result.Status,
		&result.PaymentMethod, &result.CreatedAt, &result.CompletedAt, &result.VerifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// CompletePayment переводит платёж в completed условным обновлением.
// Возвращает false, если платёж уже был в терминальном состоянии —
// так закрывается гонка двух одновременных доставок вебхука.
func (s *Storage) CompletePayment(ctx context.Context, paymentID string, paymentMethod *string, now time.Time) (bool, error) {
	const op = "storage.CompletePayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET status = $1, completed_at = $2, verified_at = $2,
			      payment_method = COALESCE($3, payment_method)
			  WHERE id = $4 AND status = $5`
	result, err := s.DB.ExecContext(ctx, query,
		models.PaymentStatusCompleted, now, paymentMethod, paymentID, models.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// FailPayment переводит платёж в failed, если он ещё pending.
func (s *Storage) FailPayment(ctx context.Context, paymentID string) (bool, error) {
	const op = "storage.FailPayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := s.DB.ExecContext(ctx, query,
		models.PaymentStatusFailed, paymentID, models.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentTransaction, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, gateway_invoice_id, gateway_payment_id, amount, tier,
				status, payment_method, created_at, completed_at, verified_at
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentTransaction
	for rows.Next() {
		var item models.PaymentTransaction
		if err := rows.Scan(&item.ID, &item.UserUID, &item.GatewayInvoiceID,
			&item.GatewayPaymentID, &item.Amount, &item.Tier, &item.Status,
			&item.PaymentMethod, &item.CreatedAt, &item.CompletedAt, &item.VerifiedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	return result, nil
}

// SumCompletedPayments возвращает суммарную выручку по завершённым платежам.
func (s *Storage) SumCompletedPayments(ctx context.Context) (int64, error) {
	const op = "storage.SumCompletedPayments"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = $1`
	var sum int64
	if err := s.DB.QueryRowContext(ctx, query, models.PaymentStatusCompleted).Scan(&sum); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}
