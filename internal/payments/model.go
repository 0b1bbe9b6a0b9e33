package payments

import (
	"encoding/json"
	"time"

	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// LogStatus is the settlement status of a top-up attempt.
type LogStatus string

const (
	LogPending LogStatus = "PENDING"
	LogSuccess LogStatus = "SUCCESS"
	LogFailed  LogStatus = "FAILED"
)

// PaymentLog records one top-up attempt against the external provider.
// IsProcessed flips to true exactly once; after that the row is terminal
// and replays return the cached result.
type PaymentLog struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Role             wallet.Role     `json:"role"`
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	Status           LogStatus       `json:"status"`
	InvoiceID        string          `json:"invoice_id"`
	InvoiceKey       string          `json:"-"`
	IsProcessed      bool            `json:"is_processed"`
	ProviderResponse json.RawMessage `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// VerifyResult is what verification reports back to the caller.
type VerifyResult struct {
	Status LogStatus   `json:"status"`
	Data   *PaymentLog `json:"data,omitempty"`
}
