// Package models содержит доменные структуры биллинга: подписки, платежи,
// счета и пользователей, а также вспомогательные типы для приёма JSON-запросов.
package models

import "time"

// Тарифы подписки.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// FreeTierLimit — месячная квота счетов на бесплатном тарифе.
const FreeTierLimit = 10

// PaidPeriodDays — длительность оплаченного периода, начисляемого за один платёж.
const PaidPeriodDays = 30

// TierLimits задаёт месячную квоту счетов для каждого тарифа.
var TierLimits = map[string]int{
	TierFree:    FreeTierLimit,
	TierPremium: 200,
}

// TierPrices задаёт цену тарифа в минорных единицах валюты (копейках).
var TierPrices = map[string]int64{
	TierPremium: 99900,
}

// Subscription — состояние подписки одного пользователя: тариф, квота,
// счётчик использования в текущем цикле и границы оплаченного периода.
// SubscriptionEndDate == nil означает бесплатный тариф без срока действия.
// MonthYear — кешированный идентификатор текущего биллингового цикла
// в формате YYYY-MM-DD, выводится из SubscriptionStartDate.
type Subscription struct {
	UserUID               string
	Tier                  string
	InvoiceLimit          int
	CurrentMonthCount     int
	SubscriptionStartDate time.Time
	SubscriptionEndDate   *time.Time
	MonthYear             string
}

// Active сообщает, действует ли оплаченный период подписки на момент now.
func (s *Subscription) Active(now time.Time) bool {
	return s.SubscriptionEndDate != nil && s.SubscriptionEndDate.After(now)
}

// RemainingCredits возвращает неиспользованный остаток квоты текущего периода.
func (s *Subscription) RemainingCredits() int {
	remaining := s.InvoiceLimit - s.CurrentMonthCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SubscriptionStatus — срез состояния подписки, отдаваемый наружу.
type SubscriptionStatus struct {
	Tier              string     `json:"tier"`
	InvoiceLimit      int        `json:"invoice_limit"`
	CurrentMonthCount int        `json:"current_month_count"`
	NextResetDate     time.Time  `json:"next_reset_date"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}
