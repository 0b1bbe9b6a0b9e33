package wallet

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
)

// Handler serves the wallet endpoints.
type Handler struct {
	Ledger *Ledger
}

func NewHandler(l *Ledger) *Handler { return &Handler{Ledger: l} }

// Balance returns the authenticated user's derived wallet balance.
// GET /wallet/balance
func (h *Handler) Balance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	owner := OwnerForRole(Role(role), uid)

	balance, err := h.Ledger.Balance(c.Request().Context(), owner)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"owner_id": owner.ID,
		"role":     owner.Role,
		"balance":  balance,
	})
}

// Transactions returns the authenticated user's journal, newest first.
// GET /wallet/transactions
func (h *Handler) Transactions(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	txs, err := h.Ledger.Transactions(c.Request().Context(), OwnerForRole(Role(role), uid), limit)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminTransactions returns any user's journal for audit.
// GET /admin/transactions/:role/:id
func (h *Handler) AdminTransactions(c echo.Context) error {
	role := Role(c.Param("role"))
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	txs, err := h.Ledger.Transactions(c.Request().Context(), Owner{Role: role, ID: userID}, limit)
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminReconcile compares a wallet's cached balance against its journal sum.
// GET /admin/wallets/:role/:id/reconcile
func (h *Handler) AdminReconcile(c echo.Context) error {
	role := Role(c.Param("role"))
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}

	rec, err := h.Ledger.Reconcile(c.Request().Context(), Owner{Role: role, ID: userID})
	if err != nil {
		status, code := domain.HTTPError(err)
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(http.StatusOK, rec)
}
