// Package pricing содержит чистые функции расчёта цен и скидок:
// партнёрскую скидку по ярусам, суммарную скидку с промокодом,
// корректировку базовых цен и порог бесплатной подписки.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// Tiers задаёт процент скидки за одного приглашённого в каждом ярусе:
// TierA - приглашённые с 1 по 9, TierB - с 10 по 19, TierC - с 20 по 29.
// Приглашённые свыше 29 скидку не увеличивают.
type Tiers struct {
	TierA int
	TierB int
	TierC int
}

// DefaultTiers - действующие ставки ярусов.
var DefaultTiers = Tiers{TierA: 1, TierB: 2, TierC: 3}

// DefaultFreeThreshold - суммарная скидка в процентах, начиная с которой
// оплата не требуется и подписка выдаётся напрямую.
const DefaultFreeThreshold = 90

// DefaultBasePrices - базовые цены подписок в USD.
var DefaultBasePrices = map[string]float64{
	models.Subscription1Month:   19.99,
	models.Subscription3Months:  49.99,
	models.Subscription6Months:  79.99,
	models.Subscription12Months: 139.99,
}

// maxCreditedAffiliates - число приглашённых, после которого скидка не растёт.
const maxCreditedAffiliates = 29

// Discount возвращает суммарную партнёрскую скидку в процентах для count
// приглашённых с действующей подпиской. Функция монотонно неубывающая
// и ограничена значением для 29 приглашённых.
func (t Tiers) Discount(count int) int {
	if count > maxCreditedAffiliates {
		count = maxCreditedAffiliates
	}
	discount := 0
	for i := 1; i <= count; i++ {
		switch {
		case i <= 9:
			discount += t.TierA
		case i <= 19:
			discount += t.TierB
		default:
			discount += t.TierC
		}
	}
	return discount
}

// AffiliateDiscount возвращает партнёрскую скидку по действующим ярусам.
func AffiliateDiscount(count int) int {
	return DefaultTiers.Discount(count)
}

// TotalDiscount складывает скидку промокода (доля в [0,1]) и партнёрскую
// скидку в единый процент. Сверху процент ничем не ограничен: порог
// бесплатной подписки проверяется отдельно через IsFree.
func TotalDiscount(promoFraction float64, affiliateCount int) float64 {
	return promoFraction*100 + float64(AffiliateDiscount(affiliateCount))
}

// IsFree сообщает, достигла ли суммарная скидка порога бесплатной подписки.
func IsFree(totalDiscountPercent float64, threshold int) bool {
	return totalDiscountPercent >= float64(threshold)
}

// AdjustedPrice возвращает базовую цену с применённой скидкой в процентах,
// не ниже нуля, округлённую до двух знаков.
func AdjustedPrice(base float64, totalDiscountPercent float64) float64 {
	price := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(totalDiscountPercent).Div(decimal.NewFromInt(100))))
	if price.IsNegative() {
		return 0
	}
	return price.Round(2).InexactFloat64()
}

// AdjustedPrices применяет скидку ко всем базовым ценам.
func AdjustedPrices(bases map[string]float64, totalDiscountPercent float64) map[string]float64 {
	adjusted := make(map[string]float64, len(bases))
	for subType, base := range bases {
		adjusted[subType] = AdjustedPrice(base, totalDiscountPercent)
	}
	return adjusted
}

// BasePrices возвращает копию базовых цен.
func BasePrices() map[string]float64 {
	prices := make(map[string]float64, len(DefaultBasePrices))
	for subType, base := range DefaultBasePrices {
		prices[subType] = base
	}
	return prices
}
