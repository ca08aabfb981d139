package paymentprovider

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

const cryptomusTestKey = "cryptomus-key"

// signCryptomusPayload подписывает payload так же, как это делает Cryptomus.
func signCryptomusPayload(t *testing.T, payload map[string]any) []byte {
	t.Helper()

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	require.NoError(t, encoder.Encode(payload))
	canonical := bytes.TrimRight(buf.Bytes(), "\n")

	encoded := base64.StdEncoding.EncodeToString(canonical)
	digest := md5.Sum([]byte(encoded + cryptomusTestKey))
	payload["sign"] = hex.EncodeToString(digest[:])

	signed, err := json.Marshal(payload)
	require.NoError(t, err)
	return signed
}

func TestCryptomus_VerifyCallback_ValidSignature(t *testing.T) {
	c := NewCryptomus("merchant-1", cryptomusTestKey, "payments.example.com")

	body := signCryptomusPayload(t, map[string]any{
		"uuid":     "uuid-42",
		"order_id": "alice-1700000000000",
		"status":   "paid",
		"amount":   "49.99",
	})

	event, err := c.VerifyCallback(body)
	require.NoError(t, err)
	assert.Equal(t, "uuid-42", event.TxnID)
	assert.Equal(t, "alice-1700000000000", event.OrderNumber)
	assert.Equal(t, models.InvoiceStatusPaid, event.Status)
	assert.Equal(t, "paid", event.RawStatus)
}

func TestCryptomus_VerifyCallback_TamperedPayload(t *testing.T) {
	c := NewCryptomus("merchant-1", cryptomusTestKey, "payments.example.com")

	body := signCryptomusPayload(t, map[string]any{
		"uuid":     "uuid-42",
		"order_id": "alice-1700000000000",
		"status":   "paid",
	})
	tampered := bytes.Replace(body, []byte(`"paid"`), []byte(`"fail"`), 1)

	_, err := c.VerifyCallback(tampered)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCryptomus_VerifyCallback_MissingSign(t *testing.T) {
	c := NewCryptomus("merchant-1", cryptomusTestKey, "payments.example.com")

	_, err := c.VerifyCallback([]byte(`{"status":"paid","order_id":"x-1"}`))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCryptomus_VerifyCallback_WrongKey(t *testing.T) {
	c := NewCryptomus("merchant-1", "another-key", "payments.example.com")

	body := signCryptomusPayload(t, map[string]any{
		"uuid":     "uuid-42",
		"order_id": "alice-1700000000000",
		"status":   "paid",
	})

	_, err := c.VerifyCallback(body)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestNormalizeCryptomusStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "paid", want: models.InvoiceStatusPaid},
		{raw: "paid_over", want: models.InvoiceStatusPaidOver},
		{raw: "wrong_amount", want: models.InvoiceStatusPaidOver},
		{raw: "fail", want: models.InvoiceStatusFailed},
		{raw: "system_fail", want: models.InvoiceStatusFailed},
		{raw: "cancel", want: models.InvoiceStatusCanceled},
		{raw: "process", want: models.InvoiceStatusPending},
		{raw: "check", want: models.InvoiceStatusPending},
		{raw: "confirm_check", want: models.InvoiceStatusConfirmCheck},
		{raw: "expired", want: models.InvoiceStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeCryptomusStatus(tt.raw))
		})
	}
}

func TestCryptomus_CreateInvoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment", r.URL.Path)
		assert.Equal(t, "merchant-1", r.Header.Get("merchant"))
		assert.NotEmpty(t, r.Header.Get("sign"))

		var req cryptomusPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "49.99", req.Amount)
		assert.Equal(t, "USD", req.Currency)
		assert.Equal(t, "ETH", req.ToCurrency)
		assert.Equal(t, "alice-1700000000000", req.OrderID)
		assert.Contains(t, req.URLCallback, "/cryptomus-callback")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"state": 0,
			"result": {
				"uuid": "uuid-42",
				"url": "https://pay.cryptomus.com/pay/uuid-42"
			}
		}`))
	}))
	defer server.Close()

	c := NewCryptomus("merchant-1", cryptomusTestKey, "payments.example.com")
	c.apiURL = server.URL

	checkout, err := c.CreateInvoice(context.Background(), CheckoutRequest{
		Amount:           49.99,
		Currency:         "ETH",
		OrderNumber:      "alice-1700000000000",
		SubscriptionType: models.Subscription3Months,
	})
	require.NoError(t, err)
	assert.Equal(t, "uuid-42", checkout.TxnID)
	assert.Equal(t, "https://pay.cryptomus.com/pay/uuid-42", checkout.InvoiceURL)
}

func TestCryptomus_CreateInvoice_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"state": 1, "message": "invalid merchant"}`))
	}))
	defer server.Close()

	c := NewCryptomus("merchant-1", cryptomusTestKey, "payments.example.com")
	c.apiURL = server.URL

	_, err := c.CreateInvoice(context.Background(), CheckoutRequest{
		Amount:           49.99,
		Currency:         "ETH",
		OrderNumber:      "alice-1700000000000",
		SubscriptionType: models.Subscription3Months,
	})
	require.Error(t, err)
}
