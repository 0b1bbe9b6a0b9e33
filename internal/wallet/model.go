package wallet

import "time"

// TxType classifies a journal row.
type TxType string

const (
	TxDeposit    TxType = "DEPOSIT"
	TxWithdrawal TxType = "WITHDRAWAL"
	TxPayment    TxType = "PAYMENT"
)

// PayStatus is the settlement status carried on a journal row. Only PAID
// deposits count toward the derived balance.
type PayStatus string

const (
	PayPending PayStatus = "PENDING"
	PayPaid    PayStatus = "PAID"
	PayFailed  PayStatus = "FAILED"
	PayExpired PayStatus = "EXPIRED"
)

// Account is the per-owner balance view. Balance is a cache maintained in the
// same transaction as every journal append; the journal stays authoritative.
type Account struct {
	OwnerID   string    `json:"owner_id"`
	Role      Role      `json:"role"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is one immutable journal row. Rows are never mutated or deleted.
type Transaction struct {
	ID            string            `json:"id"`
	OwnerID       string            `json:"owner_id"`
	Role          Role              `json:"role"`
	Amount        float64           `json:"amount"`
	Type          TxType            `json:"type"`
	PaymentStatus PayStatus         `json:"payment_status"`
	OrderID       *string           `json:"order_id,omitempty"`
	Reference     *string           `json:"reference,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Entry describes the journal row a Credit or Debit appends.
type Entry struct {
	Type      TxType
	Status    PayStatus
	OrderID   *string
	Reference *string
	Metadata  map[string]string
}
