package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// CreateInvoice вставляет новый счёт и возвращает его ID.
func (s *Storage) CreateInvoice(ctx context.Context, inv models.Invoice) (int, error) {
	const op = "storage.CreateInvoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO invoices (user_uid, number, client_name, client_email,
				  amount, tax_percent, issued_at, due_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		inv.UserUID, inv.Number, inv.ClientName, inv.ClientEmail,
		inv.Amount, inv.TaxPercent, inv.IssuedAt, inv.DueDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListInvoices возвращает счета пользователя с пагинацией.
func (s *Storage) ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	const op = "storage.ListInvoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, number, client_name, client_email,
				amount, tax_percent, issued_at, due_date
			  FROM invoices
			  WHERE user_uid = $1
			  ORDER BY issued_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Invoice
	for rows.Next() {
		var item models.Invoice
		if err := rows.Scan(&item.ID, &item.UserUID, &item.Number, &item.ClientName,
			&item.ClientEmail, &item.Amount, &item.TaxPercent, &item.IssuedAt, &item.DueDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	return result, nil
}

// RemoveInvoice удаляет счёт пользователя и возвращает количество удалённых строк.
func (s *Storage) RemoveInvoice(ctx context.Context, id int, userUID string) (int, error) {
	const op = "storage.RemoveInvoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM invoices WHERE id = $1 AND user_uid = $2`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CountInvoices считает все счета в системе.
func (s *Storage) CountInvoices(ctx context.Context) (int, error) {
	const op = "storage.CountInvoices"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
