// Команда datamigrate выполняет разовый импорт выгрузок данных из прежней
// версии сервиса (JSON-файлы с датами в расширенном формате Mongo) в
// PostgreSQL. Статус счёта completed переводится в paid.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/config"
	"github.com/magabrotheeeer/subscription-payments/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-payments/internal/migrations"
	"github.com/magabrotheeeer/subscription-payments/internal/models"
	"github.com/magabrotheeeer/subscription-payments/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-payments/internal/storage/repository"
)

// legacyDate принимает дату в любом из форматов выгрузки:
// {"$date": "..."}, {"$date": {"$numberLong": "..."}}, строка RFC3339
// или epoch в миллисекундах.
type legacyDate struct {
	Time time.Time
}

func (d *legacyDate) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		Date json.RawMessage `json:"$date"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Date != nil {
		return d.UnmarshalJSON(wrapper.Date)
	}

	var long struct {
		NumberLong string `json:"$numberLong"`
	}
	if err := json.Unmarshal(data, &long); err == nil && long.NumberLong != "" {
		var millis int64
		if _, err := fmt.Sscan(long.NumberLong, &millis); err != nil {
			return fmt.Errorf("legacy date: %w", err)
		}
		d.Time = time.UnixMilli(millis).UTC()
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("legacy date: %w", err)
		}
		d.Time = parsed
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return fmt.Errorf("legacy date: unsupported format %s", data)
	}
	d.Time = time.UnixMilli(millis).UTC()
	return nil
}

type legacyUser struct {
	Username          string     `json:"username"`
	SubscriptionType  string     `json:"subscriptionType"`
	SubscriptionStart legacyDate `json:"subscriptionStart"`
	SubscriptionEnd   legacyDate `json:"subscriptionEnd"`
	ReferralUsername  *string    `json:"referralUsername"`
}

type legacyInvoice struct {
	TxnID            string     `json:"txn_id"`
	OrderNumber      string     `json:"order_number"`
	Username         string     `json:"username"`
	SubscriptionType string     `json:"subscription_type"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	PromoCode        *string    `json:"promo_code"`
	ReferralUsername *string    `json:"referral_username"`
	CreatedAt        legacyDate `json:"created_at"`
}

type legacyPromo struct {
	Code                string     `json:"code"`
	Discount            float64    `json:"discount"`
	ExpirationDate      legacyDate `json:"expirationDate"`
	UsageLimit          int        `json:"usageLimit"`
	ApplicableDurations []string   `json:"applicableDurations"`
}

// mapLegacyStatus переводит статусы прежней версии в текущий словарь.
func mapLegacyStatus(status string) string {
	if status == "completed" {
		return models.InvoiceStatusPaid
	}
	return status
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

func main() {
	usersPath := flag.String("users", "", "path to legacy users.json")
	invoicesPath := flag.String("invoices", "", "path to legacy invoices.json")
	promosPath := flag.String("promos", "", "path to legacy promos.json")
	flag.Parse()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer db.DB.Close()

	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", sl.Err(err))
		os.Exit(1)
	}

	if *usersPath != "" {
		users, err := loadJSON[legacyUser](*usersPath)
		if err != nil {
			logger.Error("failed to load users", sl.Err(err))
			os.Exit(1)
		}
		imported := 0
		for _, u := range users {
			username := subscription.NormalizeUsername(u.Username)
			if username == "" {
				logger.Warn("skipping user with empty username")
				continue
			}
			if err := db.UpsertSubscription(ctx, models.User{
				Username:          username,
				SubscriptionType:  u.SubscriptionType,
				SubscriptionStart: u.SubscriptionStart.Time,
				SubscriptionEnd:   u.SubscriptionEnd.Time,
				ReferralUsername:  u.ReferralUsername,
			}); err != nil {
				logger.Error("failed to import user", slog.String("username", username), sl.Err(err))
				continue
			}
			imported++
		}
		logger.Info("users imported", slog.Int("count", imported), slog.Int("total", len(users)))
	}

	if *promosPath != "" {
		promos, err := loadJSON[legacyPromo](*promosPath)
		if err != nil {
			logger.Error("failed to load promos", sl.Err(err))
			os.Exit(1)
		}
		imported := 0
		for _, p := range promos {
			if err := db.UpsertPromo(ctx, models.PromoCode{
				Code:                p.Code,
				Discount:            p.Discount,
				ExpirationDate:      p.ExpirationDate.Time,
				UsageLimit:          p.UsageLimit,
				ApplicableDurations: p.ApplicableDurations,
			}); err != nil {
				logger.Error("failed to import promo", slog.String("code", p.Code), sl.Err(err))
				continue
			}
			imported++
		}
		logger.Info("promos imported", slog.Int("count", imported), slog.Int("total", len(promos)))
	}

	if *invoicesPath != "" {
		invoices, err := loadJSON[legacyInvoice](*invoicesPath)
		if err != nil {
			logger.Error("failed to load invoices", sl.Err(err))
			os.Exit(1)
		}
		imported := 0
		for _, inv := range invoices {
			if _, err := db.CreateInvoice(ctx, models.Invoice{
				TxnID:            inv.TxnID,
				OrderNumber:      inv.OrderNumber,
				Username:         subscription.NormalizeUsername(inv.Username),
				SubscriptionType: inv.SubscriptionType,
				Amount:           inv.Amount,
				Currency:         inv.Currency,
				Status:           mapLegacyStatus(inv.Status),
				PromoCode:        inv.PromoCode,
				ReferralUsername: inv.ReferralUsername,
			}); err != nil {
				logger.Error("failed to import invoice",
					slog.String("order_number", inv.OrderNumber), sl.Err(err))
				continue
			}
			imported++
		}
		logger.Info("invoices imported", slog.Int("count", imported), slog.Int("total", len(invoices)))
	}

	logger.Info("data migration finished")
}
