package models

import "time"

// Статусы платёжной транзакции. Переходы: pending -> completed | failed,
// из терминального состояния переходов нет.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// PaymentTransaction — локальная запись о платеже за тариф.
// GatewayInvoiceID и GatewayPaymentID заполняются после ответа шлюза:
// провайдер может выдавать два разных идентификатора одной логической
// транзакции, поиск при сверке идёт по обоим.
type PaymentTransaction struct {
	ID               string
	UserUID          string
	GatewayInvoiceID *string
	GatewayPaymentID *string
	Amount           int64
	Tier             string
	Status           string
	PaymentMethod    *string
	CreatedAt        time.Time
	CompletedAt      *time.Time
	VerifiedAt       *time.Time
}

// ReceiptEvent — сообщение о завершённом платеже для очереди квитанций.
type ReceiptEvent struct {
	UserUID     string    `json:"user_uid"`
	Email       string    `json:"email"`
	Tier        string    `json:"tier"`
	Amount      int64     `json:"amount"`
	CompletedAt time.Time `json:"completed_at"`
}
