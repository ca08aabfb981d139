// Package reconcile обрабатывает события платёжных провайдеров: переводит
// счета между статусами, начисляет подписку при успешной оплате и возвращает
// использование промокода при отмене или истечении счёта.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
	"github.com/magabrotheeeer/subscription-payments/internal/paymentprovider"
)

// ErrInvoiceNotFound возвращается, когда событие ссылается на неизвестный счёт.
var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceRepository описывает операции над счетами, нужные для сверки.
type InvoiceRepository interface {
	GetInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*models.Invoice, error)
	SwapInvoiceStatus(ctx context.Context, orderNumber, status, txnID string) (string, bool, error)
}

// PromoRepository возвращает использование промокода при неуспешной оплате.
type PromoRepository interface {
	RevertPromo(ctx context.Context, code string) (bool, error)
}

// SubscriptionService начисляет подписку после подтверждённой оплаты.
type SubscriptionService interface {
	ApplySubscription(ctx context.Context, username, subscriptionType string, referralUsername *string) error
}

// Service сверяет события провайдера со счетами в хранилище.
type Service struct {
	log           *slog.Logger
	invoices      InvoiceRepository
	promos        PromoRepository
	subscriptions SubscriptionService
}

// New создаёт сервис сверки платежей.
func New(log *slog.Logger, invoices InvoiceRepository, promos PromoRepository,
	subscriptions SubscriptionService) *Service {
	return &Service{log: log, invoices: invoices, promos: promos, subscriptions: subscriptions}
}

// ProcessEvent применяет событие провайдера к счёту. Побочный эффект
// выполняется до смены статуса: итоговый статус счёта означает, что
// начисление или возврат уже состоялись. При ошибке статус остаётся
// прежним, и провайдер повторит доставку; начисление подписки - upsert,
// поэтому повторное применение в окне ретрая безопасно. Повторные события
// для уже завершённого счёта распознаются по сохранённому статусу.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentprovider.Event) error {
	const op = "services.reconcile.ProcessEvent"

	log := s.log.With(
		slog.String("order_number", event.OrderNumber),
		slog.String("status", event.Status))

	switch {
	case models.IsSuccessStatus(event.Status):
		invoice, err := s.invoices.GetInvoiceByOrderNumber(ctx, event.OrderNumber)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if invoice == nil {
			return ErrInvoiceNotFound
		}
		if models.IsSuccessStatus(invoice.Status) {
			log.Info("duplicate success event ignored", slog.String("previous", invoice.Status))
			return nil
		}

		if err := s.subscriptions.ApplySubscription(ctx,
			invoice.Username, invoice.SubscriptionType, invoice.ReferralUsername); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, found, err := s.invoices.SwapInvoiceStatus(ctx, event.OrderNumber, event.Status, event.TxnID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		} else if !found {
			return ErrInvoiceNotFound
		}
		log.Info("payment confirmed", slog.String("username", invoice.Username))
		return nil

	case models.IsFailureStatus(event.Status):
		invoice, err := s.invoices.GetInvoiceByOrderNumber(ctx, event.OrderNumber)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if invoice == nil {
			log.Warn("failure event for unknown invoice")
			return nil
		}
		if models.IsFailureStatus(invoice.Status) {
			log.Info("duplicate failure event ignored", slog.String("previous", invoice.Status))
			return nil
		}

		if invoice.PromoCode != nil {
			if _, err := s.promos.RevertPromo(ctx, *invoice.PromoCode); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		if _, found, err := s.invoices.SwapInvoiceStatus(ctx, event.OrderNumber, event.Status, event.TxnID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		} else if !found {
			log.Warn("failure event for unknown invoice")
			return nil
		}
		log.Info("payment failed", slog.String("username", invoice.Username))
		return nil

	default:
		// Промежуточные статусы фиксируются без побочных эффектов.
		_, found, err := s.invoices.SwapInvoiceStatus(ctx, event.OrderNumber, event.Status, event.TxnID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			log.Warn("interim event for unknown invoice")
		}
		return nil
	}
}
