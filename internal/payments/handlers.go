package payments

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// Handler serves the top-up endpoints and the provider webhook.
type Handler struct {
	Service       *Service
	WebhookSecret string
}

func NewHandler(s *Service, webhookSecret string) *Handler {
	return &Handler{Service: s, WebhookSecret: webhookSecret}
}

// TopUp creates a pending payment log and returns the hosted payment URL.
// POST /wallet/topup
func (h *Handler) TopUp(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	var req struct {
		Amount      float64 `json:"amount"`
		RedirectURL string  `json:"redirect_url"`
	}
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	url, pl, err := h.Service.CreateTopUp(c.Request().Context(), uid, wallet.Role(role), req.Amount, req.RedirectURL)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_url": url,
		"invoice_id":  pl.InvoiceID,
		"status":      pl.Status,
	})
}

// Verify reconciles an invoice against the provider, e.g. after redirect.
// POST /payments/verify/:invoiceId
func (h *Handler) Verify(c echo.Context) error {
	invoiceID := c.Param("invoiceId")
	if invoiceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invoice id required"})
	}

	res, err := h.Service.VerifyPayment(c.Request().Context(), invoiceID)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code, "status": res.Status})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": res.Status, "data": res.Data})
}

type webhookPayload struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceKey    string `json:"invoice_key"`
	PaymentMethod string `json:"payment_method"`
	HashKey       string `json:"hashKey"`
}

// Webhook handles provider callbacks. The signature gate comes first; once a
// payload passes it the handler always acknowledges with ok:true so the
// provider stops retrying, whatever the processing outcome was.
// POST /payments/webhook
func (h *Handler) Webhook(c echo.Context) error {
	var p webhookPayload
	if err := c.Bind(&p); err != nil || p.InvoiceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if !VerifyWebhookSignature(h.WebhookSecret, p.InvoiceID, p.InvoiceKey, p.PaymentMethod, p.HashKey) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "INTEGRITY_VIOLATION"})
	}

	// The payload status is ignored on purpose; verification asks the
	// provider's status API directly.
	if _, err := h.Service.VerifyPayment(c.Request().Context(), p.InvoiceID); err != nil {
		c.Logger().Errorf("webhook processing: invoice=%s err=%v", p.InvoiceID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
