package models

import "time"

// Invoice — счёт, выставленный пользователем своему клиенту.
// Amount хранится в минорных единицах валюты, TaxPercent — плоский процент.
type Invoice struct {
	ID          int
	UserUID     string
	Number      string
	ClientName  string
	ClientEmail string
	Amount      int64
	TaxPercent  int
	IssuedAt    time.Time
	DueDate     time.Time
}

// DummyInvoice используется для приёма данных счёта из JSON-запроса,
// даты приходят строками и парсятся вручную.
type DummyInvoice struct {
	Number      string `json:"number" validate:"required"`
	ClientName  string `json:"client_name" validate:"required"`
	ClientEmail string `json:"client_email" validate:"required,email"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	TaxPercent  int    `json:"tax_percent" validate:"gte=0,lte=100"`
	DueDate     string `json:"due_date" validate:"required"`
}
