// Package paymentprovider реализует клиент HTTP API платёжного шлюза:
// создание счёта на оплату и получение списка транзакций.
package paymentprovider

import "time"

// Статусы транзакции на стороне шлюза.
const (
	TxStatusPaid    = "paid"
	TxStatusFailed  = "failed"
	TxStatusPending = "pending"
)

// CreateInvoiceRequest представляет запрос на создание счёта в шлюзе.
type CreateInvoiceRequest struct {
	Customer    string `json:"customer"`
	Amount      int64  `json:"amount"` // сумма в минорных единицах
	Description string `json:"description"`
	ExpiryHours int    `json:"expiry_hours"`
}

// CreateInvoiceResponse представляет ответ шлюза на создание счёта.
type CreateInvoiceResponse struct {
	TransactionID string `json:"transaction_id"`
	InvoiceID     string `json:"invoice_id"`
	PaymentURL    string `json:"payment_url"`
}

// Transaction представляет транзакцию из списка шлюза.
// ID и InvoiceID — два идентификатора одной логической транзакции.
type Transaction struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type listTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
