package payments_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otlob-dev/otlob-wallet/internal/payments"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

func postWebhook(h *payments.Handler, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = h.Webhook(e.NewContext(req, rec))
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}}
	_, ledger, svc := setup(provider)
	h := payments.NewHandler(svc, "hook-secret")

	_, pl, err := svc.CreateTopUp(context.Background(), "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	body := fmt.Sprintf(`{"invoice_id":%q,"invoice_key":"key-1","payment_method":"card","hashKey":"deadbeef"}`, pl.InvoiceID)
	rec := postWebhook(h, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTEGRITY_VIOLATION")

	// The forged call must not have triggered a credit.
	balance, err := ledger.Balance(context.Background(), wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 0, balance, 0.001)
}

func TestWebhookProcessesSignedPayload(t *testing.T) {
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}}
	_, ledger, svc := setup(provider)
	h := payments.NewHandler(svc, "hook-secret")

	_, pl, err := svc.CreateTopUp(context.Background(), "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	sig := payments.WebhookSignature("hook-secret", pl.InvoiceID, "key-1", "card")
	body := fmt.Sprintf(`{"invoice_id":%q,"invoice_key":"key-1","payment_method":"card","hashKey":%q}`, pl.InvoiceID, sig)

	rec := postWebhook(h, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	balance, err := ledger.Balance(context.Background(), wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 50, balance, 0.001)

	// Redelivery acknowledges again without a second credit.
	rec = postWebhook(h, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	balance, _ = ledger.Balance(context.Background(), wallet.Customer("user-1"))
	assert.InDelta(t, 50, balance, 0.001)
}
