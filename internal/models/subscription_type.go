// Package models содержит доменные структуры: пользователей, счета,
// промокоды, а также вспомогательные типы для приёма данных из JSON-запросов.
package models

// Типы подписки, которые продаёт система.
const (
	SubscriptionTrial    = "trial"
	Subscription1Month   = "1_month"
	Subscription3Months  = "3_months"
	Subscription6Months  = "6_months"
	Subscription12Months = "12_months"
)

// PaidSubscriptionTypes перечисляет платные типы подписки в порядке возрастания срока.
var PaidSubscriptionTypes = []string{
	Subscription1Month,
	Subscription3Months,
	Subscription6Months,
	Subscription12Months,
}

var subscriptionLabels = map[string]string{
	SubscriptionTrial:    "trial",
	Subscription1Month:   "1 month",
	Subscription3Months:  "3 months",
	Subscription6Months:  "6 months",
	Subscription12Months: "12 months",
}

// IsPaidSubscriptionType сообщает, является ли строка платным типом подписки.
func IsPaidSubscriptionType(s string) bool {
	for _, t := range PaidSubscriptionTypes {
		if s == t {
			return true
		}
	}
	return false
}

// SubscriptionLabel возвращает человекочитаемую метку типа подписки
// для сообщений пользователю. Неизвестный тип возвращается как есть.
func SubscriptionLabel(s string) string {
	if label, ok := subscriptionLabels[s]; ok {
		return label
	}
	return s
}
