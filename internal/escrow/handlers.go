package escrow

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
)

// Handler serves the buyer-protection endpoints.
type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler { return &Handler{Service: s} }

// ConfirmDelivery releases the escrow for a completed wallet-paid order.
// POST /orders/:id/confirm-delivery
func (h *Handler) ConfirmDelivery(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	hb, err := h.Service.ConfirmDeliveryReceipt(c.Request().Context(), orderID, uid)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":         "delivery confirmed, funds released",
		"released_amount": hb.TotalAmount,
	})
}

// OpenDispute opens a dispute against a completed wallet-paid order.
// POST /orders/:id/dispute
func (h *Handler) OpenDispute(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}
	var req struct {
		Reason   string `json:"reason"`
		Evidence string `json:"evidence"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}

	d, err := h.Service.CreateOrderDispute(c.Request().Context(), orderID, uid, req.Reason, req.Evidence)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusCreated, echo.Map{"dispute_id": d.ID, "status": d.Status})
}

// Protection returns the buyer-protection state of an order.
// GET /orders/:id/protection
func (h *Handler) Protection(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	ps, err := h.Service.OrderProtectionStatus(c.Request().Context(), orderID, uid)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, ps)
}

// DeliveryOTP returns a fresh hand-off code for a shipped wallet-paid order.
// GET /orders/:id/delivery-otp
func (h *Handler) DeliveryOTP(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	otp, err := h.Service.DeliveryOTP(c.Request().Context(), orderID, uid)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"otp": otp})
}

// DriverResponse records the driver's side of an open dispute.
// POST /disputes/:id/driver-response
func (h *Handler) DriverResponse(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	disputeID := c.Param("id")
	var req struct {
		Response string `json:"response"`
		Evidence string `json:"evidence"`
	}
	if err := c.Bind(&req); err != nil || req.Response == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: response required"})
	}

	d, err := h.Service.AddDriverResponse(c.Request().Context(), disputeID, uid, req.Response, req.Evidence)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"dispute_id": d.ID, "status": d.Status})
}

// AdminDisputes lists disputes for review, optionally filtered by status.
// GET /admin/disputes
func (h *Handler) AdminDisputes(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	filter := DisputeStatus(c.QueryParam("status"))

	ds, err := h.Service.ListDisputes(c.Request().Context(), filter, limit)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"disputes": ds})
}

// AdminResolve adjudicates an open dispute.
// POST /admin/disputes/:id/resolve
func (h *Handler) AdminResolve(c echo.Context) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	disputeID := c.Param("id")
	var req struct {
		Resolution     string `json:"resolution"`
		Reason         string `json:"reason"`
		ResolutionType string `json:"resolution_type"`
	}
	if err := c.Bind(&req); err != nil || req.ResolutionType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: resolution_type required"})
	}

	d, err := h.Service.ResolveDispute(c.Request().Context(), disputeID, adminID, req.Resolution, req.Reason, DisputeStatus(req.ResolutionType))
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "resolved",
		"dispute_id": d.ID,
		"status":     d.Status,
	})
}
