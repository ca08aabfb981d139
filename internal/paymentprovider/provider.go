// Package paymentprovider содержит клиентов криптовалютных платёжных
// провайдеров. Каждый клиент умеет создавать счёт и проверять подлинность
// callback-а по подписи своего провайдера. Статусы провайдеров нормализуются
// к словарю статусов счёта из пакета models до передачи в бизнес-логику.
package paymentprovider

import (
	"context"
	"errors"
)

// ErrBadSignature возвращается, когда подпись callback-а не сходится.
// Такой callback отбрасывается до любых изменений в хранилище.
var ErrBadSignature = errors.New("invalid callback signature")

// CheckoutRequest - параметры создания счёта у провайдера.
type CheckoutRequest struct {
	Amount           float64 // Сумма в USD после скидок
	Currency         string  // Криптовалюта, в которой платит пользователь
	OrderNumber      string  // Номер заказа, ключ идемпотентности callback-ов
	SubscriptionType string  // Тип подписки для наименования заказа
}

// Checkout - результат создания счёта у провайдера.
type Checkout struct {
	TxnID      string  // Идентификатор транзакции у провайдера
	InvoiceURL string  // Ссылка на оплату для пользователя
	TotalSum   float64 // Итоговая сумма счёта по данным провайдера (0, если не сообщена)
}

// Event - проверенный и нормализованный callback провайдера.
type Event struct {
	TxnID       string // Идентификатор транзакции
	OrderNumber string // Номер заказа из счёта
	Status      string // Нормализованный статус из словаря models
	RawStatus   string // Статус в терминах провайдера, для логов
}

// Provider - платёжный провайдер: создание счетов и проверка callback-ов.
type Provider interface {
	// Name возвращает имя провайдера для маршрутов и логов.
	Name() string
	// CreateInvoice создаёт счёт у провайдера и возвращает ссылку на оплату.
	CreateInvoice(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// VerifyCallback проверяет подпись сырого тела callback-а и разбирает событие.
	// При неверной подписи возвращает ErrBadSignature, ничего не разбирая дальше.
	VerifyCallback(body []byte) (*Event, error)
}
