// Package invoice реализует выставление счетов с учётом месячной квоты тарифа.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// Ошибки, видимые пользователю.
var (
	// ErrQuotaExceeded — месячная квота счетов исчерпана.
	ErrQuotaExceeded = errors.New("monthly invoice quota exceeded")
	// ErrInvoiceNotFound — счёт не существует или принадлежит другому пользователю.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrInvalidDueDate — дата оплаты не распарсилась или раньше даты выставления.
	ErrInvalidDueDate = errors.New("invalid due date")
)

// InvoiceRepository определяет методы хранения счетов.
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv models.Invoice) (int, error)
	ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error)
	RemoveInvoice(ctx context.Context, id int, userUID string) (int, error)
}

// QuotaKeeper отвечает на вопрос "можно ли выставить ещё один счёт"
// и наращивает счётчик использования.
type QuotaKeeper interface {
	CanGenerateInvoice(ctx context.Context, userUID string) (bool, error)
	IncrementInvoiceCount(ctx context.Context, userUID string) (int, error)
}

// Service выставляет, перечисляет и удаляет счета пользователя.
type Service struct {
	repo  InvoiceRepository
	quota QuotaKeeper
	log   *slog.Logger
	now   func() time.Time
}

// New создает новый экземпляр Service.
func New(repo InvoiceRepository, quota QuotaKeeper, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		quota: quota,
		log:   log,
		now:   time.Now,
	}
}

// Create выставляет счёт, если квота текущего цикла позволяет.
// Счётчик наращивается после успешной записи счёта; проверка и инкремент
// не образуют одну транзакцию, поэтому при редкой гонке двух параллельных
// запросов пользователь может превысить квоту на единицу. Это осознанный
// компромисс: квота — мягкий продуктовый лимит, а не инвариант безопасности.
func (s *Service) Create(ctx context.Context, userUID string, dummy models.DummyInvoice) (*models.Invoice, error) {
	const op = "invoice.Create"

	allowed, err := s.quota.CanGenerateInvoice(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	}

	now := s.now()
	dueDate, err := time.Parse("2006-01-02", dummy.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidDueDate, err)
	}
	if dueDate.Before(now.Truncate(24 * time.Hour)) {
		return nil, fmt.Errorf("%s: %w: due date is in the past", op, ErrInvalidDueDate)
	}

	inv := models.Invoice{
		UserUID:     userUID,
		Number:      dummy.Number,
		ClientName:  dummy.ClientName,
		ClientEmail: dummy.ClientEmail,
		Amount:      dummy.Amount,
		TaxPercent:  dummy.TaxPercent,
		IssuedAt:    now,
		DueDate:     dueDate,
	}
	id, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inv.ID = id

	count, err := s.quota.IncrementInvoiceCount(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("invoice created",
		slog.Int("invoice_id", id),
		slog.String("user_uid", userUID),
		slog.Int("month_count", count))
	return &inv, nil
}

// List возвращает счета пользователя с пагинацией.
func (s *Service) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	const op = "invoice.List"

	invoices, err := s.repo.ListInvoices(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return invoices, nil
}

// Remove удаляет счёт пользователя. Квота при удалении не возвращается:
// счётчик считает факты выставления, а не живые счета.
func (s *Service) Remove(ctx context.Context, id int, userUID string) error {
	const op = "invoice.Remove"

	removed, err := s.repo.RemoveInvoice(ctx, id, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if removed == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvoiceNotFound)
	}
	s.log.Info("invoice removed", slog.Int("invoice_id", id), slog.String("user_uid", userUID))
	return nil
}
