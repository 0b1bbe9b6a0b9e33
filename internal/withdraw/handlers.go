package withdraw

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// Handler serves the payout endpoints.
type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler { return &Handler{Service: s} }

// Create opens a payout request.
// POST /wallet/withdrawals
func (h *Handler) Create(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	var req struct {
		Amount          float64 `json:"amount"`
		Method          string  `json:"method"`
		PayoutAccountID string  `json:"payout_account_id"`
	}
	if err := c.Bind(&req); err != nil || req.Amount <= 0 || req.PayoutAccountID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	r, err := h.Service.Create(c.Request().Context(), CreateInput{
		UserID:          uid,
		Role:            wallet.Role(role),
		Amount:          req.Amount,
		Method:          req.Method,
		PayoutAccountID: req.PayoutAccountID,
	})
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusCreated, r)
}

// ListMine returns the caller's payout requests.
// GET /wallet/withdrawals
func (h *Handler) ListMine(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	items, err := h.Service.ListMine(c.Request().Context(), uid, limit)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": items})
}

// AdminListPending returns requests awaiting review.
// GET /admin/withdrawals/pending
func (h *Handler) AdminListPending(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	items, err := h.Service.ListPending(c.Request().Context(), limit)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"pending_withdrawals": items})
}

// AdminApprove marks a pending request approved.
// POST /admin/withdrawals/:id/approve
func (h *Handler) AdminApprove(c echo.Context) error {
	return h.adminReview(c, h.Service.Approve)
}

// AdminReject marks a pending request rejected.
// POST /admin/withdrawals/:id/reject
func (h *Handler) AdminReject(c echo.Context) error {
	return h.adminReview(c, h.Service.Reject)
}

func (h *Handler) adminReview(c echo.Context, fn func(ctx context.Context, requestID, adminID, notes string) (Request, error)) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request id required"})
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.Bind(&req)

	r, err := fn(c.Request().Context(), id, adminID, req.Notes)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, r)
}

// AdminComplete performs the payout debit.
// POST /admin/withdrawals/:id/complete
func (h *Handler) AdminComplete(c echo.Context) error {
	adminID, ok := c.Get("user_id").(string)
	if !ok || adminID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request id required"})
	}

	r, err := h.Service.Complete(c.Request().Context(), id, adminID)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "withdrawal completed",
		"request_id": r.ID,
		"reference":  r.Reference,
		"status":     r.Status,
	})
}
