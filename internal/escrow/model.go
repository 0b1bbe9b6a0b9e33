package escrow

import "time"

// HeldStatus is the escrow record state. HELD is the only non-terminal state
// besides DISPUTED; see transitions.go for the allowed moves.
type HeldStatus string

const (
	StatusHeld     HeldStatus = "HELD"
	StatusReleased HeldStatus = "RELEASED"
	StatusRefunded HeldStatus = "REFUNDED"
	StatusDisputed HeldStatus = "DISPUTED"
)

// ReleaseType records which path released the funds.
type ReleaseType string

const (
	ReleaseCustomerConfirmation ReleaseType = "CUSTOMER_CONFIRMATION"
	ReleaseTimeout              ReleaseType = "TIMEOUT_RELEASE"
	ReleaseAdminResolution      ReleaseType = "ADMIN_RESOLUTION"
)

// HeldBalance is the escrow record, 1:1 with a wallet-paid order. The split
// amounts always sum to TotalAmount.
type HeldBalance struct {
	ID              string       `json:"id"`
	OrderID         string       `json:"order_id"`
	CustomerID      string       `json:"customer_id"`
	VendorID        string       `json:"vendor_id"`
	DriverID        *string      `json:"driver_id,omitempty"`
	TotalAmount     float64      `json:"total_amount"`
	VendorAmount    float64      `json:"vendor_amount"`
	DriverAmount    float64      `json:"driver_amount"`
	AdminAmount     float64      `json:"admin_amount"`
	Status          HeldStatus   `json:"status"`
	HoldReason      string       `json:"hold_reason"`
	AutoReleaseDate time.Time    `json:"auto_release_date"`
	ReleasedAt      *time.Time   `json:"released_at,omitempty"`
	ReleaseType     *ReleaseType `json:"release_type,omitempty"`
	DisputeID       *string      `json:"dispute_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DisputeStatus tracks adjudication progress.
type DisputeStatus string

const (
	DisputePending       DisputeStatus = "PENDING"
	DisputeUnderReview   DisputeStatus = "UNDER_REVIEW"
	DisputeCustomerWin   DisputeStatus = "RESOLVED_CUSTOMER_WIN"
	DisputeDriverWin     DisputeStatus = "RESOLVED_DRIVER_WIN"
	DisputePartial       DisputeStatus = "RESOLVED_PARTIAL"
	DisputeFraudDetected DisputeStatus = "FRAUD_DETECTED"
)

// Dispute is a customer claim against a held balance, adjudicated by an admin.
type Dispute struct {
	ID               string        `json:"id"`
	OrderID          string        `json:"order_id"`
	CustomerID       string        `json:"customer_id"`
	DriverID         *string       `json:"driver_id,omitempty"`
	Reason           string        `json:"reason"`
	CustomerEvidence string        `json:"customer_evidence,omitempty"`
	DriverResponse   string        `json:"driver_response,omitempty"`
	DriverEvidence   string        `json:"driver_evidence,omitempty"`
	Status           DisputeStatus `json:"status"`
	Resolution       string        `json:"resolution,omitempty"`
	ResolvedBy       *string       `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// AuditEntry is one immutable adjudication audit row.
type AuditEntry struct {
	ID        string    `json:"id"`
	DisputeID string    `json:"dispute_id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (d Dispute) open() bool {
	return d.Status == DisputePending || d.Status == DisputeUnderReview
}
