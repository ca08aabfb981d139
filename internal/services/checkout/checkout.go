// Package checkout реализует проверку промокодов, расчёт цен со скидками
// и создание счёта на оплату у платёжного провайдера.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/lib/pricing"
	"github.com/magabrotheeeer/subscription-payments/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-payments/internal/models"
	"github.com/magabrotheeeer/subscription-payments/internal/paymentprovider"
	"github.com/magabrotheeeer/subscription-payments/internal/services/subscription"
)

// PromoRepository описывает операции над промокодами в хранилище.
type PromoRepository interface {
	GetPromo(ctx context.Context, code string) (*models.PromoCode, error)
	ConsumePromo(ctx context.Context, code string) (bool, error)
	RevertPromo(ctx context.Context, code string) (bool, error)
}

// InvoiceRepository описывает запись счетов в хранилище.
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, invoice models.Invoice) (int64, error)
}

// SubscriptionService - часть сервиса подписок, нужная для оформления оплаты.
type SubscriptionService interface {
	AffiliateCount(ctx context.Context, username string) (int, error)
	ApplySubscription(ctx context.Context, username, subscriptionType string, referralUsername *string) error
}

// PromoResult - результат применения промокода. При успехе содержит прайс,
// в котором скидка применена только к выбранному сроку подписки.
type PromoResult struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message,omitempty"`
	UpdatedPrices map[string]float64 `json:"updatedPrices,omitempty"`
	AppliedTo     string             `json:"appliedTo,omitempty"`
}

// PricesResult - цены всех сроков подписки с учётом суммарной скидки.
// При отклонённом промокоде содержит только причину отказа.
type PricesResult struct {
	Success         bool               `json:"success"`
	Message         string             `json:"message,omitempty"`
	AdjustedPrices  map[string]float64 `json:"adjustedPrices,omitempty"`
	AffiliateNumber int                `json:"affiliateNumber"`
}

// InvoiceResult - результат создания счёта. При бесплатной выдаче
// подписка начисляется сразу и ссылка на оплату не возвращается.
type InvoiceResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	InvoiceURL string `json:"invoiceUrl,omitempty"`

	// Служебные поля, в ответ клиенту не сериализуются.
	TxnID  string  `json:"-"`
	Amount float64 `json:"-"`
	Free   bool    `json:"-"`
}

// Service оформляет оплату подписки через платёжного провайдера.
type Service struct {
	log           *slog.Logger
	promos        PromoRepository
	invoices      InvoiceRepository
	subscriptions SubscriptionService
	provider      paymentprovider.Provider
	freeThreshold int
}

// New создаёт сервис оформления оплаты.
func New(log *slog.Logger, promos PromoRepository, invoices InvoiceRepository,
	subscriptions SubscriptionService, provider paymentprovider.Provider, freeThreshold int) *Service {
	if freeThreshold <= 0 {
		freeThreshold = pricing.DefaultFreeThreshold
	}
	return &Service{
		log:           log,
		promos:        promos,
		invoices:      invoices,
		subscriptions: subscriptions,
		provider:      provider,
		freeThreshold: freeThreshold,
	}
}

// verifyPromo проверяет промокод без списания использования. Возвращает
// промокод и nil-результат при успехе, иначе результат с причиной отказа.
// Проверки идут в фиксированном порядке: существование, срок действия,
// остаток использований, применимость к выбранному сроку.
func (s *Service) verifyPromo(ctx context.Context, code, subscriptionType string) (*models.PromoCode, *PromoResult, error) {
	const op = "services.checkout.verifyPromo"

	promo, err := s.promos.GetPromo(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if promo == nil {
		return nil, &PromoResult{Success: false, Message: "Invalid promo code."}, nil
	}
	if time.Now().After(promo.ExpirationDate) {
		return nil, &PromoResult{Success: false, Message: "This promo code has expired."}, nil
	}
	if promo.UsageLimit <= 0 {
		return nil, &PromoResult{Success: false, Message: "This promo code has reached its usage limit."}, nil
	}
	if !promo.AppliesTo(subscriptionType) {
		return nil, &PromoResult{Success: false, Message: "This promo code is not applicable to the selected subscription duration."}, nil
	}
	return promo, nil, nil
}

// ApplyPromo проверяет промокод для выбранного срока подписки и возвращает
// прайс, где скидка применена только к этому сроку. Использование промокода
// при этом не списывается: списание происходит при создании счёта.
func (s *Service) ApplyPromo(ctx context.Context, code, subscriptionType string) (*PromoResult, error) {
	const op = "services.checkout.ApplyPromo"

	promo, refusal, err := s.verifyPromo(ctx, code, subscriptionType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if refusal != nil {
		return refusal, nil
	}

	prices := pricing.BasePrices()
	prices[subscriptionType] = pricing.AdjustedPrice(prices[subscriptionType], promo.Discount*100)
	return &PromoResult{
		Success:       true,
		UpdatedPrices: prices,
		AppliedTo:     subscriptionType,
	}, nil
}

// AdjustedPrices возвращает цены всех сроков подписки с учётом партнёрской
// скидки пользователя и, если указан, промокода. Отклонённый промокод
// не игнорируется: запрос завершается отказом с причиной.
func (s *Service) AdjustedPrices(ctx context.Context, username, promoCode, subscriptionType string) (*PricesResult, error) {
	const op = "services.checkout.AdjustedPrices"

	username = subscription.NormalizeUsername(username)
	affiliateCount, err := s.subscriptions.AffiliateCount(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	promoFraction := 0.0
	if promoCode != "" {
		promo, refusal, err := s.verifyPromo(ctx, promoCode, subscriptionType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if refusal != nil {
			return &PricesResult{Success: false, Message: refusal.Message}, nil
		}
		promoFraction = promo.Discount
	}

	totalDiscount := pricing.TotalDiscount(promoFraction, affiliateCount)
	return &PricesResult{
		Success:         true,
		AdjustedPrices:  pricing.AdjustedPrices(pricing.BasePrices(), totalDiscount),
		AffiliateNumber: affiliateCount,
	}, nil
}

// CreateInvoice оформляет оплату подписки: проверяет и списывает промокод,
// считает итоговую цену, а затем либо сразу начисляет подписку при скидке
// выше порога бесплатной выдачи, либо создаёт счёт у провайдера.
// Использование промокода списывается до обращения к провайдеру и
// возвращается обратно, если провайдер или хранилище отказали.
func (s *Service) CreateInvoice(ctx context.Context, username, subscriptionType, currency, promoCode string, referralUsername *string) (*InvoiceResult, error) {
	const op = "services.checkout.CreateInvoice"

	username = subscription.NormalizeUsername(username)
	base, ok := pricing.DefaultBasePrices[subscriptionType]
	if !ok {
		return &InvoiceResult{Success: false, Message: "Unknown subscription duration."}, nil
	}

	affiliateCount, err := s.subscriptions.AffiliateCount(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	promoFraction := 0.0
	var consumedPromo *string
	if promoCode != "" {
		promo, refusal, err := s.verifyPromo(ctx, promoCode, subscriptionType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if refusal != nil {
			return &InvoiceResult{Success: false, Message: refusal.Message}, nil
		}

		consumed, err := s.promos.ConsumePromo(ctx, promoCode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !consumed {
			return &InvoiceResult{Success: false, Message: "This promo code has reached its usage limit."}, nil
		}
		promoFraction = promo.Discount
		consumedPromo = &promoCode
	}

	totalDiscount := pricing.TotalDiscount(promoFraction, affiliateCount)

	if pricing.IsFree(totalDiscount, s.freeThreshold) {
		if err := s.subscriptions.ApplySubscription(ctx, username, subscriptionType, referralUsername); err != nil {
			s.revertPromo(ctx, consumedPromo)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("free subscription granted",
			slog.String("username", username),
			slog.String("subscription_type", subscriptionType),
			slog.Float64("total_discount", totalDiscount))
		return &InvoiceResult{
			Success: true,
			Free:    true,
			Message: "Your discount covers the full price. Subscription activated.",
		}, nil
	}

	amount := pricing.AdjustedPrice(base, totalDiscount)
	orderNumber := fmt.Sprintf("%s-%d", username, time.Now().UnixMilli())

	checkout, err := s.provider.CreateInvoice(ctx, paymentprovider.CheckoutRequest{
		Amount:           amount,
		Currency:         currency,
		OrderNumber:      orderNumber,
		SubscriptionType: subscriptionType,
	})
	if err != nil {
		s.revertPromo(ctx, consumedPromo)
		s.log.Error("provider invoice creation failed",
			slog.String("provider", s.provider.Name()),
			slog.String("order_number", orderNumber), sl.Err(err))
		return &InvoiceResult{Success: false, Message: "Failed to create invoice. Please try again later."}, nil
	}

	if checkout.TotalSum > 0 {
		amount = checkout.TotalSum
	}

	var referral *string
	if referralUsername != nil {
		normalized := subscription.NormalizeUsername(*referralUsername)
		if normalized != "" && normalized != username {
			referral = &normalized
		}
	}

	if _, err := s.invoices.CreateInvoice(ctx, models.Invoice{
		TxnID:            checkout.TxnID,
		OrderNumber:      orderNumber,
		Username:         username,
		SubscriptionType: subscriptionType,
		Amount:           amount,
		Currency:         currency,
		Status:           models.InvoiceStatusPending,
		PromoCode:        consumedPromo,
		ReferralUsername: referral,
	}); err != nil {
		s.revertPromo(ctx, consumedPromo)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("invoice created",
		slog.String("provider", s.provider.Name()),
		slog.String("order_number", orderNumber),
		slog.String("username", username),
		slog.Float64("amount", amount))

	return &InvoiceResult{
		Success:    true,
		InvoiceURL: checkout.InvoiceURL,
		TxnID:      checkout.TxnID,
		Amount:     amount,
	}, nil
}

// revertPromo возвращает списанное использование промокода.
func (s *Service) revertPromo(ctx context.Context, code *string) {
	if code == nil {
		return
	}
	if _, err := s.promos.RevertPromo(ctx, *code); err != nil {
		s.log.Error("failed to revert promo usage", slog.String("code", *code), sl.Err(err))
	}
}
