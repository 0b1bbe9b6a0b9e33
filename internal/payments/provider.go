package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Invoice is the hosted payment page created for a top-up.
type Invoice struct {
	URL        string
	InvoiceID  string
	InvoiceKey string
}

// InvoiceStatus is the provider's server-to-server view of an invoice.
// Status values: paid, unpaid, pending, failed, expired, cancelled.
type InvoiceStatus struct {
	Status   string
	Amount   float64
	Currency string
}

// InvoiceRequest carries what the provider needs to build a payment page.
type InvoiceRequest struct {
	Amount      float64
	Currency    string
	CustomerID  string
	RedirectURL string
}

// Provider is the external payment gateway. The client-asserted webhook
// payload is never trusted; GetInvoiceStatus is the authority.
type Provider interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (InvoiceStatus, error)
}

// HTTPProvider talks to a Fawaterak-style invoice REST API.
type HTTPProvider struct {
	client *resty.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	return &HTTPProvider{client: c}
}

type createInvoiceResponse struct {
	Status string `json:"status"`
	Data   struct {
		URL        string `json:"url"`
		InvoiceID  string `json:"invoiceId"`
		InvoiceKey string `json:"invoiceKey"`
	} `json:"data"`
}

func (p *HTTPProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	var out createInvoiceResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"cartTotal":    fmt.Sprintf("%.2f", req.Amount),
			"currency":     req.Currency,
			"customer":     map[string]string{"id": req.CustomerID},
			"redirectUrl":  req.RedirectURL,
			"sendEmail":    false,
			"payLoadValue": map[string]string{"user_id": req.CustomerID},
		}).
		SetResult(&out).
		Post("/createInvoiceLink")
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	if resp.IsError() || out.Data.InvoiceID == "" {
		return Invoice{}, fmt.Errorf("create invoice: provider returned %s", resp.Status())
	}
	return Invoice{URL: out.Data.URL, InvoiceID: out.Data.InvoiceID, InvoiceKey: out.Data.InvoiceKey}, nil
}

type invoiceStatusResponse struct {
	Status string `json:"status"`
	Data   struct {
		PaymentStatus string  `json:"paymentStatus"`
		Total         float64 `json:"total"`
		Currency      string  `json:"currency"`
	} `json:"data"`
}

func (p *HTTPProvider) GetInvoiceStatus(ctx context.Context, invoiceID string) (InvoiceStatus, error) {
	var out invoiceStatusResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/getInvoiceData/" + invoiceID)
	if err != nil {
		return InvoiceStatus{}, fmt.Errorf("get invoice status: %w", err)
	}
	if resp.IsError() {
		return InvoiceStatus{}, fmt.Errorf("get invoice status: provider returned %s", resp.Status())
	}
	return InvoiceStatus{
		Status:   strings.ToLower(out.Data.PaymentStatus),
		Amount:   out.Data.Total,
		Currency: out.Data.Currency,
	}, nil
}

// WebhookSignature computes the HMAC-SHA256 the provider sends with webhook
// deliveries, over the canonical invoice query string.
func WebhookSignature(secret, invoiceID, invoiceKey, paymentMethod string) string {
	canonical := fmt.Sprintf("invoice_id=%s&invoice_key=%s&payment_method=%s", invoiceID, invoiceKey, paymentMethod)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares in constant time. The payload is not
// trusted at all until this passes.
func VerifyWebhookSignature(secret, invoiceID, invoiceKey, paymentMethod, got string) bool {
	want := WebhookSignature(secret, invoiceID, invoiceKey, paymentMethod)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(got)))
}
