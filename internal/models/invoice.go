package models

import "time"

// Статусы счёта. Провайдеры присылают собственные наборы статусов,
// клиенты провайдеров нормализуют их к этому словарю до обработки.
const (
	InvoiceStatusPending      = "pending"
	InvoiceStatusPaid         = "paid"
	InvoiceStatusPaidOver     = "paid_over"
	InvoiceStatusExpired      = "expired"
	InvoiceStatusFailed       = "failed"
	InvoiceStatusCanceled     = "canceled"
	InvoiceStatusRejected     = "rejected"
	InvoiceStatusConfirmCheck = "confirm_check"
)

// IsSuccessStatus сообщает, относится ли статус к терминально-успешному классу:
// по такому статусу пользователю начисляется подписка.
func IsSuccessStatus(status string) bool {
	return status == InvoiceStatusPaid || status == InvoiceStatusPaidOver
}

// IsFailureStatus сообщает, относится ли статус к терминально-неуспешному классу:
// по такому статусу возвращается использованный промокод.
func IsFailureStatus(status string) bool {
	switch status {
	case InvoiceStatusExpired, InvoiceStatusFailed, InvoiceStatusCanceled, InvoiceStatusRejected:
		return true
	}
	return false
}

// Invoice представляет одну попытку оплаты: связывает пользователя,
// срок подписки и транзакцию платёжного провайдера.
// OrderNumber формируется как {username}-{unix millis} при создании
// и служит ключом идемпотентности для callback-ов провайдера.
type Invoice struct {
	ID               int64      // Внутренний идентификатор записи
	TxnID            string     // Идентификатор транзакции у провайдера
	OrderNumber      string     // Уникальный номер заказа, виден провайдеру
	Username         string     // Имя пользователя (нормализованное)
	SubscriptionType string     // Оплачиваемый тип подписки
	Amount           float64    // Сумма счёта после скидок
	Currency         string     // Криптовалюта оплаты
	Status           string     // Текущий статус счёта
	PromoCode        *string    // Использованный промокод (nil, если нет)
	ReferralUsername *string    // Атрибуция приглашения (nil, если нет)
	CreatedAt        time.Time  // Время создания
	UpdatedAt        *time.Time // Время последнего изменения статуса
}
