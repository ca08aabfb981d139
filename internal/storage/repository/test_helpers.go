package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-payments/internal/migrations"
	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// setupTestDatabase поднимает контейнер PostgreSQL, применяет миграции
// и возвращает готовое хранилище вместе с функцией очистки.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	require.NoError(t, migrations.Run(storage.DB, "../../../migrations"))

	cleanup := func() {
		_ = storage.DB.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя с подпиской
func (f *TestDataFactory) CreateUser(t *testing.T, username, subscriptionType string,
	start, end time.Time, referralUsername *string) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO users
		(username, subscription_type, subscription_start, subscription_end, referral_username)
		VALUES ($1, $2, $3, $4, $5)`,
		username, subscriptionType, start, end, referralUsername)
	require.NoError(t, err)
}

// CreatePromo создает тестовый промокод
func (f *TestDataFactory) CreatePromo(t *testing.T, code string, discount float64,
	expirationDate time.Time, usageLimit int, applicableDurations []string) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO promos
		(code, discount, expiration_date, usage_limit, applicable_durations)
		VALUES ($1, $2, $3, $4, $5)`,
		code, discount, expirationDate, usageLimit, toTextArray(applicableDurations))
	require.NoError(t, err)
}

// CreateInvoice создает тестовый счёт и возвращает его ID
func (f *TestDataFactory) CreateInvoice(t *testing.T, invoice models.Invoice) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO invoices
		(txn_id, order_number, username, subscription_type, amount, currency, status, promo_code, referral_username)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		invoice.TxnID, invoice.OrderNumber, invoice.Username, invoice.SubscriptionType,
		invoice.Amount, invoice.Currency, invoice.Status, invoice.PromoCode,
		invoice.ReferralUsername).Scan(&id)
	require.NoError(t, err)
	return id
}

// PromoUsageLimit возвращает текущий счётчик использований промокода
func (f *TestDataFactory) PromoUsageLimit(t *testing.T, code string) int {
	t.Helper()
	var limit int
	err := f.storage.DB.QueryRow(`SELECT usage_limit FROM promos WHERE code = $1`, code).Scan(&limit)
	require.NoError(t, err)
	return limit
}

// toTextArray кодирует срез в литерал postgres-массива.
func toTextArray(values []string) string {
	if len(values) == 0 {
		return "{}"
	}
	out := "{"
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out + "}"
}
