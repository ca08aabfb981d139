package paymentprovider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// Plisio - клиент провайдера Plisio. Счета создаются GET-запросом к
// invoices/new, callback-и подписываются HMAC-SHA1 от JSON-формы данных
// с отсортированными по алфавиту ключами без поля verify_hash.
type Plisio struct {
	apiKey      string
	secretKey   string
	callbackURL string
	apiURL      string
	httpClient  *http.Client
}

// NewPlisio создаёт клиент Plisio. backendURL - публичный хост этого сервиса,
// из него строится callback_url, передаваемый провайдеру при создании счёта.
func NewPlisio(apiKey, secretKey, backendURL string) *Plisio {
	return &Plisio{
		apiKey:      apiKey,
		secretKey:   secretKey,
		callbackURL: "https://" + backendURL + "/plisio-callback?json=true",
		apiURL:      "https://plisio.net/api/v1",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name возвращает имя провайдера.
func (p *Plisio) Name() string { return "plisio" }

type plisioInvoiceResponse struct {
	Status string `json:"status"`
	Data   struct {
		TxnID      string `json:"txn_id"`
		InvoiceURL string `json:"invoice_url"`
		// Plisio отдаёт сумму строкой.
		InvoiceTotalSum string `json:"invoice_total_sum"`
	} `json:"data"`
}

// CreateInvoice создаёт счёт у Plisio и возвращает ссылку на оплату.
func (p *Plisio) CreateInvoice(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	const op = "paymentprovider.plisio.CreateInvoice"

	params := url.Values{}
	params.Set("source_currency", "USD")
	params.Set("source_amount", fmt.Sprintf("%.2f", req.Amount))
	params.Set("currency", req.Currency)
	params.Set("order_number", req.OrderNumber)
	params.Set("order_name", "Subscription "+req.SubscriptionType)
	params.Set("callback_url", p.callbackURL)
	params.Set("api_key", p.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.apiURL+"/invoices/new?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var invoiceResp plisioInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&invoiceResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if invoiceResp.Status != "success" {
		return nil, fmt.Errorf("%s: provider returned status %q", op, invoiceResp.Status)
	}

	totalSum, _ := strconv.ParseFloat(invoiceResp.Data.InvoiceTotalSum, 64)
	return &Checkout{
		TxnID:      invoiceResp.Data.TxnID,
		InvoiceURL: invoiceResp.Data.InvoiceURL,
		TotalSum:   totalSum,
	}, nil
}

// VerifyCallback проверяет подпись verify_hash и разбирает событие.
// Канонизация повторяет подпись на стороне Plisio: ключи сортируются
// по алфавиту, поле verify_hash исключается, данные сериализуются в JSON
// без экранирования HTML.
func (p *Plisio) VerifyCallback(body []byte) (*Event, error) {
	const op = "paymentprovider.plisio.VerifyCallback"

	data := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	providedHash, ok := data["verify_hash"].(string)
	if !ok || providedHash == "" {
		return nil, ErrBadSignature
	}
	delete(data, "verify_hash")

	canonical, err := canonicalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mac := hmac.New(sha1.New, []byte(p.secretKey))
	mac.Write(canonical)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(providedHash)) {
		return nil, ErrBadSignature
	}

	rawStatus, _ := data["status"].(string)
	txnID, _ := data["txn_id"].(string)
	orderNumber, _ := data["order_number"].(string)

	return &Event{
		TxnID:       txnID,
		OrderNumber: orderNumber,
		Status:      normalizePlisioStatus(rawStatus),
		RawStatus:   rawStatus,
	}, nil
}

// normalizePlisioStatus переводит статусы Plisio в словарь статусов счёта.
func normalizePlisioStatus(status string) string {
	switch status {
	case "completed":
		return models.InvoiceStatusPaid
	case "mismatch":
		return models.InvoiceStatusPaidOver
	case "cancelled":
		return models.InvoiceStatusCanceled
	case "error":
		return models.InvoiceStatusFailed
	case "new":
		return models.InvoiceStatusPending
	default:
		return status
	}
}

// canonicalJSON сериализует данные с отсортированными ключами и без
// экранирования HTML, как это делает JSON.stringify.
func canonicalJSON(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
