package models

import "time"

// PromoCode представляет промокод со скидкой, сроком действия,
// счётчиком оставшихся использований и набором применимых сроков подписки.
// UsageLimit уменьшается при использовании и возвращается при неуспешной
// оплате; изменение всегда выполняется одной атомарной операцией хранилища.
type PromoCode struct {
	Code                 string    // Код (уникальный)
	Discount             float64   // Размер скидки, доля в [0,1]
	ExpirationDate       time.Time // Срок действия кода
	UsageLimit           int       // Оставшееся число использований
	ApplicableDurations  []string  // Типы подписки, к которым применим код
}

// AppliesTo сообщает, применим ли код к выбранному типу подписки.
func (p *PromoCode) AppliesTo(subscriptionType string) bool {
	for _, d := range p.ApplicableDurations {
		if d == subscriptionType {
			return true
		}
	}
	return false
}
