package withdraw

import (
	"time"

	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// Status is the payout request state. PENDING and APPROVED are the only
// states Complete accepts; everything else is terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// Request is one payout request. BalanceSnapshot is informational only:
// completion always re-reads the live balance.
type Request struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Role            wallet.Role `json:"role"`
	Amount          float64     `json:"amount"`
	Status          Status      `json:"status"`
	Method          string      `json:"method"`
	PayoutAccountID string      `json:"payout_account_id"`
	BalanceSnapshot float64     `json:"balance_snapshot"`
	AdminNotes      string      `json:"admin_notes,omitempty"`
	Reference       *string     `json:"reference,omitempty"`
	ReviewedBy      *string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time  `json:"reviewed_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
