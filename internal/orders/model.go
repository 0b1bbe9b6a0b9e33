// Package orders exposes the thin order view the escrow subsystem reads.
// Order lifecycle CRUD lives elsewhere; escrow only needs the parties, the
// payment method, the status and the delivery hand-off code.
package orders

import "time"

type Status string

const (
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
)

type PaymentMethod string

const (
	PaymentWallet PaymentMethod = "WALLET"
	PaymentCash   PaymentMethod = "CASH"
)

type Order struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id"`
	VendorID      string        `json:"vendor_id"`
	DriverID      *string       `json:"driver_id,omitempty"`
	Amount        float64       `json:"amount"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	DeliveryOTP   *string       `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
}
