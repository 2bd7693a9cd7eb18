package models

import "time"

// User — учётная запись пользователя сервиса.
type User struct {
	UUID         string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// AdminStats — агрегаты для админской статистики.
type AdminStats struct {
	TotalUsers        int   `json:"total_users"`
	PaidSubscriptions int   `json:"paid_subscriptions"`
	TotalInvoices     int   `json:"total_invoices"`
	Revenue           int64 `json:"revenue"`
}
