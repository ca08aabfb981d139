package models

import "time"

// User представляет пользователя внешнего приложения с его подпиской.
// Username хранится в нижнем регистре и служит первичным ключом.
// ReferralUsername заполняется один раз при первой атрибуции и далее
// не перезаписывается даже при продлениях подписки.
type User struct {
	Username          string     // Имя пользователя (нормализованное, уникальное)
	SubscriptionType  string     // Тип подписки: trial, 1_month, 3_months, 6_months, 12_months
	SubscriptionStart time.Time  // Дата начала подписки
	SubscriptionEnd   time.Time  // Дата окончания подписки
	ReferralUsername  *string    // Имя пригласившего пользователя (nil, если нет)
}
