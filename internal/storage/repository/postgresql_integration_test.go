package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

func TestStorage_UpsertSubscription_FirstWriteWinsReferral(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	original := "mentor"
	other := "impostor"

	err := storage.UpsertSubscription(ctx, models.User{
		Username:          "alice",
		SubscriptionType:  models.Subscription1Month,
		SubscriptionStart: now,
		SubscriptionEnd:   now.AddDate(0, 1, 0),
		ReferralUsername:  &original,
	})
	require.NoError(t, err)

	// Продление с другим referral не должно менять атрибуцию
	err = storage.UpsertSubscription(ctx, models.User{
		Username:          "alice",
		SubscriptionType:  models.Subscription3Months,
		SubscriptionStart: now,
		SubscriptionEnd:   now.AddDate(0, 3, 0),
		ReferralUsername:  &other,
	})
	require.NoError(t, err)

	user, err := storage.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, models.Subscription3Months, user.SubscriptionType)
	require.NotNil(t, user.ReferralUsername)
	assert.Equal(t, original, *user.ReferralUsername)
}

func TestStorage_UpsertSubscription_SetsReferralWhenUnset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	err := storage.UpsertSubscription(ctx, models.User{
		Username:          "bob",
		SubscriptionType:  models.Subscription1Month,
		SubscriptionStart: now,
		SubscriptionEnd:   now.AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	mentor := "mentor"
	err = storage.UpsertSubscription(ctx, models.User{
		Username:          "bob",
		SubscriptionType:  models.Subscription1Month,
		SubscriptionStart: now,
		SubscriptionEnd:   now.AddDate(0, 2, 0),
		ReferralUsername:  &mentor,
	})
	require.NoError(t, err)

	user, err := storage.GetUser(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, user.ReferralUsername)
	assert.Equal(t, mentor, *user.ReferralUsername)
}

func TestStorage_CountValidAffiliates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	factory := NewTestDataFactory(storage)
	mentor := "mentor"

	// Два действующих приглашённых, один истёкший, один чужой
	factory.CreateUser(t, "active1", models.Subscription1Month, now.AddDate(0, -1, 0), now.AddDate(0, 1, 0), &mentor)
	factory.CreateUser(t, "active2", models.Subscription3Months, now.AddDate(0, -1, 0), now.AddDate(0, 2, 0), &mentor)
	factory.CreateUser(t, "expired", models.Subscription1Month, now.AddDate(0, -2, 0), now.AddDate(0, -1, 0), &mentor)
	other := "someoneelse"
	factory.CreateUser(t, "foreign", models.Subscription1Month, now.AddDate(0, -1, 0), now.AddDate(0, 1, 0), &other)

	count, err := storage.CountValidAffiliates(ctx, "mentor")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = storage.CountValidAffiliates(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStorage_GetUser_Absent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	user, err := storage.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestStorage_ConsumeRevertPromo_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	factory.CreatePromo(t, "SAVE20", 0.2, time.Now().AddDate(0, 1, 0), 5,
		[]string{models.Subscription1Month, models.Subscription3Months})

	ok, err := storage.ConsumePromo(ctx, "SAVE20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, factory.PromoUsageLimit(t, "SAVE20"))

	ok, err = storage.RevertPromo(ctx, "SAVE20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, factory.PromoUsageLimit(t, "SAVE20"))
}

func TestStorage_ConsumePromo_Exhausted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	factory.CreatePromo(t, "LASTONE", 0.5, time.Now().AddDate(0, 1, 0), 1,
		[]string{models.Subscription1Month})

	ok, err := storage.ConsumePromo(ctx, "LASTONE")
	require.NoError(t, err)
	assert.True(t, ok)

	// Счётчик на нуле: повторное использование не проходит и не уводит в минус
	ok, err = storage.ConsumePromo(ctx, "LASTONE")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, factory.PromoUsageLimit(t, "LASTONE"))
}

func TestStorage_ConsumePromo_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ok, err := storage.ConsumePromo(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_GetPromo_Durations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	factory.CreatePromo(t, "WIDE", 0.1, time.Now().AddDate(0, 1, 0), 10,
		[]string{models.Subscription1Month, models.Subscription12Months})

	promo, err := storage.GetPromo(context.Background(), "WIDE")
	require.NoError(t, err)
	require.NotNil(t, promo)
	assert.Equal(t, 0.1, promo.Discount)
	assert.True(t, promo.AppliesTo(models.Subscription1Month))
	assert.True(t, promo.AppliesTo(models.Subscription12Months))
	assert.False(t, promo.AppliesTo(models.Subscription6Months))

	missing, err := storage.GetPromo(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStorage_SwapInvoiceStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	orderNumber := "alice-" + uuid.NewString()
	factory.CreateInvoice(t, models.Invoice{
		TxnID:            "txn-1",
		OrderNumber:      orderNumber,
		Username:         "alice",
		SubscriptionType: models.Subscription1Month,
		Amount:           19.99,
		Currency:         "BTC",
		Status:           models.InvoiceStatusPending,
	})

	previous, found, err := storage.SwapInvoiceStatus(ctx, orderNumber, models.InvoiceStatusPaid, "txn-2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.InvoiceStatusPending, previous)

	// Повторный callback видит уже применённый статус
	previous, found, err = storage.SwapInvoiceStatus(ctx, orderNumber, models.InvoiceStatusPaid, "txn-2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.InvoiceStatusPaid, previous)

	invoice, err := storage.GetInvoiceByOrderNumber(ctx, orderNumber)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, "txn-2", invoice.TxnID)
	assert.NotNil(t, invoice.UpdatedAt)
}

func TestStorage_SwapInvoiceStatus_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, found, err := storage.SwapInvoiceStatus(context.Background(), "ghost-1", models.InvoiceStatusPaid, "txn")
	require.NoError(t, err)
	assert.False(t, found)
}
