// Package period содержит расчёт даты окончания подписки по её типу.
package period

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// TrialDays - длительность пробного периода в днях.
const TrialDays = 2

// End возвращает дату окончания подписки выбранного типа, отсчитанную от from.
// Месячные сроки считаются календарно через AddDate: переполнение месяца
// переносится на следующий (31 января + 1 месяц = 2/3 марта).
func End(subscriptionType string, from time.Time) (time.Time, error) {
	switch subscriptionType {
	case models.SubscriptionTrial:
		return from.AddDate(0, 0, TrialDays), nil
	case models.Subscription1Month:
		return from.AddDate(0, 1, 0), nil
	case models.Subscription3Months:
		return from.AddDate(0, 3, 0), nil
	case models.Subscription6Months:
		return from.AddDate(0, 6, 0), nil
	case models.Subscription12Months:
		return from.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown subscription type: %q", subscriptionType)
	}
}
