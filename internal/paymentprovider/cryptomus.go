package paymentprovider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// Cryptomus - клиент провайдера Cryptomus. Запросы и callback-и подписываются
// дайджестом MD5 от base64-формы JSON-тела, сцепленной с API-ключом.
type Cryptomus struct {
	merchantID  string
	apiKey      string
	callbackURL string
	apiURL      string
	httpClient  *http.Client
}

// NewCryptomus создаёт клиент Cryptomus. backendURL - публичный хост этого
// сервиса, из него строится url_callback, передаваемый при создании счёта.
func NewCryptomus(merchantID, apiKey, backendURL string) *Cryptomus {
	return &Cryptomus{
		merchantID:  merchantID,
		apiKey:      apiKey,
		callbackURL: "https://" + backendURL + "/cryptomus-callback",
		apiURL:      "https://api.cryptomus.com/v1",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name возвращает имя провайдера.
func (c *Cryptomus) Name() string { return "cryptomus" }

type cryptomusPaymentRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	ToCurrency  string `json:"to_currency,omitempty"`
	OrderID     string `json:"order_id"`
	URLCallback string `json:"url_callback"`
}

type cryptomusPaymentResponse struct {
	State  int `json:"state"`
	Result struct {
		UUID string `json:"uuid"`
		URL  string `json:"url"`
	} `json:"result"`
	Message string `json:"message"`
}

// sign возвращает подпись тела запроса: MD5 hex от base64(body) + apiKey.
func (c *Cryptomus) sign(body []byte) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	digest := md5.Sum([]byte(encoded + c.apiKey))
	return hex.EncodeToString(digest[:])
}

// CreateInvoice создаёт счёт у Cryptomus и возвращает ссылку на оплату.
func (c *Cryptomus) CreateInvoice(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	const op = "paymentprovider.cryptomus.CreateInvoice"

	body, err := json.Marshal(cryptomusPaymentRequest{
		Amount:      fmt.Sprintf("%.2f", req.Amount),
		Currency:    "USD",
		ToCurrency:  req.Currency,
		OrderID:     req.OrderNumber,
		URLCallback: c.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/payment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("merchant", c.merchantID)
	httpReq.Header.Set("sign", c.sign(body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var paymentResp cryptomusPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&paymentResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if paymentResp.State != 0 || paymentResp.Result.URL == "" {
		return nil, fmt.Errorf("%s: provider returned state %d: %s", op, paymentResp.State, paymentResp.Message)
	}

	return &Checkout{
		TxnID:      paymentResp.Result.UUID,
		InvoiceURL: paymentResp.Result.URL,
	}, nil
}

// VerifyCallback проверяет поле sign и разбирает событие. Подпись считается
// от JSON-формы данных без поля sign: base64 от сериализованного тела,
// сцепленная с API-ключом, под MD5.
func (c *Cryptomus) VerifyCallback(body []byte) (*Event, error) {
	const op = "paymentprovider.cryptomus.VerifyCallback"

	data := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	providedSign, ok := data["sign"].(string)
	if !ok || providedSign == "" {
		return nil, ErrBadSignature
	}
	delete(data, "sign")

	canonical, err := canonicalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !hmac.Equal([]byte(c.sign(canonical)), []byte(providedSign)) {
		return nil, ErrBadSignature
	}

	rawStatus, _ := data["status"].(string)
	txnID, _ := data["uuid"].(string)
	orderNumber, _ := data["order_id"].(string)

	return &Event{
		TxnID:       txnID,
		OrderNumber: orderNumber,
		Status:      normalizeCryptomusStatus(rawStatus),
		RawStatus:   rawStatus,
	}, nil
}

// normalizeCryptomusStatus переводит статусы Cryptomus в словарь статусов счёта.
func normalizeCryptomusStatus(status string) string {
	switch status {
	case "paid":
		return models.InvoiceStatusPaid
	case "paid_over", "wrong_amount":
		return models.InvoiceStatusPaidOver
	case "fail", "system_fail":
		return models.InvoiceStatusFailed
	case "cancel":
		return models.InvoiceStatusCanceled
	case "process", "check":
		return models.InvoiceStatusPending
	case "confirm_check":
		return models.InvoiceStatusConfirmCheck
	default:
		return status
	}
}
