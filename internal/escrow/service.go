package escrow

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/orders"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// Store is the persistence surface the escrow service needs. One transaction
// spans held-balance rows, dispute rows and the wallet ledger.
type Store interface {
	Begin(ctx context.Context) (store.Tx, error)

	InsertHeldBalance(ctx context.Context, tx store.Tx, hb HeldBalance) error
	HeldByOrderForUpdate(ctx context.Context, tx store.Tx, orderID string) (HeldBalance, error)
	HeldByOrder(ctx context.Context, orderID string) (HeldBalance, error)
	UpdateHeldBalance(ctx context.Context, tx store.Tx, hb HeldBalance) error
	ListAutoReleasable(ctx context.Context, now time.Time, limit int) ([]string, error)

	InsertDispute(ctx context.Context, tx store.Tx, d Dispute) error
	DisputeByIDForUpdate(ctx context.Context, tx store.Tx, id string) (Dispute, error)
	DisputeByOrder(ctx context.Context, orderID string) (*Dispute, error)
	ListDisputes(ctx context.Context, status DisputeStatus, limit int) ([]Dispute, error)
	UpdateDispute(ctx context.Context, tx store.Tx, d Dispute) error
	AppendAudit(ctx context.Context, tx store.Tx, entry AuditEntry) error

	OrderByID(ctx context.Context, orderID string) (orders.Order, error)
	SetOrderOTP(ctx context.Context, orderID, otp string) error
}

// Notifier delivers user notifications. Failures are logged, never propagated
// into money movement.
type Notifier interface {
	SendCustomNotification(ctx context.Context, userIDs []string, title, body map[string]string, data map[string]string) error
}

// Service owns the held-balance lifecycle: escrow creation with the pay-in
// debit, release/refund, dispute adjudication and the timeout sweep.
type Service struct {
	store           Store
	ledger          *wallet.Ledger
	notifier        Notifier
	autoReleaseDays int
	now             func() time.Time
}

func NewService(s Store, l *wallet.Ledger, n Notifier, autoReleaseDays int) *Service {
	if autoReleaseDays <= 0 {
		autoReleaseDays = 7
	}
	return &Service{store: s, ledger: l, notifier: n, autoReleaseDays: autoReleaseDays, now: time.Now}
}

func (s *Service) SetNow(now func() time.Time) { s.now = now }

// HoldInput describes the escrow split for a wallet-paid order.
type HoldInput struct {
	OrderID      string
	CustomerID   string
	VendorID     string
	DriverID     *string
	VendorAmount float64
	DriverAmount float64
	AdminAmount  float64
	HoldReason   string
}

func (in HoldInput) total() float64 {
	return in.VendorAmount + in.DriverAmount + in.AdminAmount
}

// Hold debits the customer's wallet for the full order amount and creates the
// HELD escrow record in the same transaction, so the pay-in and the hold can
// never exist without each other.
func (s *Service) Hold(ctx context.Context, in HoldInput) (HeldBalance, error) {
	if in.OrderID == "" || in.CustomerID == "" || in.VendorID == "" {
		return HeldBalance{}, fmt.Errorf("%w: order, customer and vendor are required", domain.ErrInvalidInput)
	}
	total := in.total()
	if total <= 0 || in.VendorAmount < 0 || in.DriverAmount < 0 || in.AdminAmount < 0 {
		return HeldBalance{}, fmt.Errorf("%w: escrow split must be non-negative with a positive total", domain.ErrIntegrityViolation)
	}
	if in.DriverAmount > 0 && in.DriverID == nil {
		return HeldBalance{}, fmt.Errorf("%w: driver amount without a driver", domain.ErrIntegrityViolation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return HeldBalance{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := s.store.HeldByOrderForUpdate(ctx, tx, in.OrderID); err == nil {
		return HeldBalance{}, fmt.Errorf("%w: order already has a held balance", domain.ErrInvalidState)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return HeldBalance{}, err
	}

	orderID := in.OrderID
	if _, err := s.ledger.DebitTx(ctx, tx, wallet.Customer(in.CustomerID), total, wallet.Entry{
		Type:    wallet.TxPayment,
		Status:  wallet.PayPaid,
		OrderID: &orderID,
		Metadata: map[string]string{
			"source": "order_payin",
		},
	}); err != nil {
		return HeldBalance{}, err
	}

	now := s.now()
	hb := HeldBalance{
		ID:              uuid.New().String(),
		OrderID:         in.OrderID,
		CustomerID:      in.CustomerID,
		VendorID:        in.VendorID,
		DriverID:        in.DriverID,
		TotalAmount:     total,
		VendorAmount:    in.VendorAmount,
		DriverAmount:    in.DriverAmount,
		AdminAmount:     in.AdminAmount,
		Status:          StatusHeld,
		HoldReason:      in.HoldReason,
		AutoReleaseDate: now.AddDate(0, 0, s.autoReleaseDays),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertHeldBalance(ctx, tx, hb); err != nil {
		return HeldBalance{}, fmt.Errorf("insert held balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return HeldBalance{}, err
	}
	return hb, nil
}

// Release distributes a HELD balance to vendor, driver and platform in one
// transaction. A non-HELD record is rejected, never re-executed.
func (s *Service) Release(ctx context.Context, orderID string, relType ReleaseType, reason string) (HeldBalance, error) {
	return s.settle(ctx, orderID, eventRelease, relType, reason)
}

// Refund returns the full held total to the customer. Valid only from HELD;
// disputed records are refunded through ResolveDispute.
func (s *Service) Refund(ctx context.Context, orderID, reason string) (HeldBalance, error) {
	return s.settle(ctx, orderID, eventRefund, "", reason)
}

// settle runs one release or refund transition with its ledger credits inside
// a single transaction. The status guard and the credits commit together, so
// the first committer wins and every loser fails its guard.
func (s *Service) settle(ctx context.Context, orderID string, ev event, relType ReleaseType, reason string) (HeldBalance, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return HeldBalance{}, err
	}
	defer tx.Rollback(ctx)

	hb, err := s.store.HeldByOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return HeldBalance{}, err
	}
	next, err := nextHeldStatus(hb.Status, ev)
	if err != nil {
		return HeldBalance{}, err
	}

	switch next {
	case StatusReleased:
		if err := s.creditSplit(ctx, tx, hb, 1.0); err != nil {
			return HeldBalance{}, err
		}
	case StatusRefunded:
		oid := hb.OrderID
		if _, err := s.ledger.CreditTx(ctx, tx, wallet.Customer(hb.CustomerID), hb.TotalAmount, wallet.Entry{
			Type:     wallet.TxDeposit,
			Status:   wallet.PayPaid,
			OrderID:  &oid,
			Metadata: map[string]string{"source": "escrow_refund", "reason": reason},
		}); err != nil {
			return HeldBalance{}, err
		}
	}

	now := s.now()
	hb.Status = next
	hb.UpdatedAt = now
	hb.ReleasedAt = &now
	if next == StatusReleased {
		if relType == "" {
			relType = ReleaseAdminResolution
		}
		rt := relType
		hb.ReleaseType = &rt
	}
	if reason != "" {
		hb.HoldReason = reason
	}
	if err := s.store.UpdateHeldBalance(ctx, tx, hb); err != nil {
		return HeldBalance{}, fmt.Errorf("update held balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return HeldBalance{}, err
	}
	return hb, nil
}

// creditSplit credits vendor, driver and platform their shares scaled by
// fraction. fraction is 1.0 for a full release, 0.5 for a partial resolution.
func (s *Service) creditSplit(ctx context.Context, tx store.Tx, hb HeldBalance, fraction float64) error {
	oid := hb.OrderID
	meta := map[string]string{"source": "escrow_release"}
	if hb.VendorAmount > 0 {
		if _, err := s.ledger.CreditTx(ctx, tx, wallet.Vendor(hb.VendorID), hb.VendorAmount*fraction, wallet.Entry{
			Type: wallet.TxDeposit, Status: wallet.PayPaid, OrderID: &oid, Metadata: meta,
		}); err != nil {
			return err
		}
	}
	if hb.DriverAmount > 0 && hb.DriverID != nil {
		if _, err := s.ledger.CreditTx(ctx, tx, wallet.Driver(*hb.DriverID), hb.DriverAmount*fraction, wallet.Entry{
			Type: wallet.TxDeposit, Status: wallet.PayPaid, OrderID: &oid, Metadata: meta,
		}); err != nil {
			return err
		}
	}
	if hb.AdminAmount > 0 {
		if _, err := s.ledger.CreditTx(ctx, tx, wallet.Platform(), hb.AdminAmount*fraction, wallet.Entry{
			Type: wallet.TxDeposit, Status: wallet.PayPaid, OrderID: &oid, Metadata: meta,
		}); err != nil {
			return err
		}
	}
	return nil
}

// CreateDispute moves a HELD balance to DISPUTED and opens the dispute row in
// one transaction. Only one dispute may ever exist per order.
func (s *Service) CreateDispute(ctx context.Context, orderID, customerID, reason, evidence string) (Dispute, error) {
	if reason == "" {
		return Dispute{}, fmt.Errorf("%w: reason required", domain.ErrInvalidInput)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Dispute{}, err
	}
	defer tx.Rollback(ctx)

	hb, err := s.store.HeldByOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return Dispute{}, err
	}
	if hb.CustomerID != customerID {
		return Dispute{}, domain.ErrForbidden
	}
	if hb.DisputeID != nil {
		return Dispute{}, fmt.Errorf("%w: order already disputed", domain.ErrInvalidState)
	}
	next, err := nextHeldStatus(hb.Status, eventDispute)
	if err != nil {
		return Dispute{}, err
	}

	now := s.now()
	d := Dispute{
		ID:               uuid.New().String(),
		OrderID:          orderID,
		CustomerID:       customerID,
		DriverID:         hb.DriverID,
		Reason:           reason,
		CustomerEvidence: evidence,
		Status:           DisputePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.InsertDispute(ctx, tx, d); err != nil {
		return Dispute{}, fmt.Errorf("insert dispute: %w", err)
	}

	hb.Status = next
	hb.DisputeID = &d.ID
	hb.UpdatedAt = now
	if err := s.store.UpdateHeldBalance(ctx, tx, hb); err != nil {
		return Dispute{}, fmt.Errorf("update held balance: %w", err)
	}
	if err := s.store.AppendAudit(ctx, tx, AuditEntry{
		ID:        uuid.New().String(),
		DisputeID: d.ID,
		ActorID:   customerID,
		Action:    "dispute_created",
		OldValue:  string(StatusHeld),
		NewValue:  string(StatusDisputed),
		CreatedAt: now,
	}); err != nil {
		return Dispute{}, fmt.Errorf("append audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// AddDriverResponse records the driver's side and moves the dispute to
// UNDER_REVIEW. Valid only while the dispute is still open.
func (s *Service) AddDriverResponse(ctx context.Context, disputeID, driverID, response, evidence string) (Dispute, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Dispute{}, err
	}
	defer tx.Rollback(ctx)

	d, err := s.store.DisputeByIDForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if d.DriverID == nil || *d.DriverID != driverID {
		return Dispute{}, domain.ErrForbidden
	}
	if !d.open() {
		return Dispute{}, fmt.Errorf("%w: dispute already resolved", domain.ErrInvalidState)
	}

	now := s.now()
	old := d.Status
	d.DriverResponse = response
	d.DriverEvidence = evidence
	d.Status = DisputeUnderReview
	d.UpdatedAt = now
	if err := s.store.UpdateDispute(ctx, tx, d); err != nil {
		return Dispute{}, fmt.Errorf("update dispute: %w", err)
	}
	if err := s.store.AppendAudit(ctx, tx, AuditEntry{
		ID:        uuid.New().String(),
		DisputeID: d.ID,
		ActorID:   driverID,
		Action:    "driver_response_added",
		OldValue:  string(old),
		NewValue:  string(DisputeUnderReview),
		CreatedAt: now,
	}); err != nil {
		return Dispute{}, fmt.Errorf("append audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// ResolveDispute drives the linked held balance through release or refund and
// records the resolution, all inside one transaction.
func (s *Service) ResolveDispute(ctx context.Context, disputeID, adminID, resolution, reason string, resolutionType DisputeStatus) (Dispute, error) {
	switch resolutionType {
	case DisputeCustomerWin, DisputeDriverWin, DisputePartial, DisputeFraudDetected:
	default:
		return Dispute{}, fmt.Errorf("%w: unknown resolution type %q", domain.ErrInvalidInput, resolutionType)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Dispute{}, err
	}
	defer tx.Rollback(ctx)

	d, err := s.store.DisputeByIDForUpdate(ctx, tx, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if !d.open() {
		return Dispute{}, fmt.Errorf("%w: dispute already resolved", domain.ErrInvalidState)
	}
	hb, err := s.store.HeldByOrderForUpdate(ctx, tx, d.OrderID)
	if err != nil {
		return Dispute{}, err
	}

	now := s.now()
	oid := hb.OrderID
	var ev event
	switch resolutionType {
	case DisputeDriverWin:
		ev = eventResolveRelease
		if _, err := nextHeldStatus(hb.Status, ev); err != nil {
			return Dispute{}, err
		}
		if err := s.creditSplit(ctx, tx, hb, 1.0); err != nil {
			return Dispute{}, err
		}
	case DisputeCustomerWin, DisputeFraudDetected:
		ev = eventResolveRefund
		if _, err := nextHeldStatus(hb.Status, ev); err != nil {
			return Dispute{}, err
		}
		if _, err := s.ledger.CreditTx(ctx, tx, wallet.Customer(hb.CustomerID), hb.TotalAmount, wallet.Entry{
			Type:     wallet.TxDeposit,
			Status:   wallet.PayPaid,
			OrderID:  &oid,
			Metadata: map[string]string{"source": "dispute_refund", "reason": reason},
		}); err != nil {
			return Dispute{}, err
		}
	case DisputePartial:
		// Half the total goes back to the customer, the other half is
		// distributed along the original split. The two legs still sum to
		// exactly TotalAmount.
		ev = eventResolveRelease
		if _, err := nextHeldStatus(hb.Status, ev); err != nil {
			return Dispute{}, err
		}
		if _, err := s.ledger.CreditTx(ctx, tx, wallet.Customer(hb.CustomerID), hb.TotalAmount*0.5, wallet.Entry{
			Type:     wallet.TxDeposit,
			Status:   wallet.PayPaid,
			OrderID:  &oid,
			Metadata: map[string]string{"source": "dispute_partial_refund", "reason": reason},
		}); err != nil {
			return Dispute{}, err
		}
		if err := s.creditSplit(ctx, tx, hb, 0.5); err != nil {
			return Dispute{}, err
		}
	}

	next, err := nextHeldStatus(hb.Status, ev)
	if err != nil {
		return Dispute{}, err
	}
	hb.Status = next
	hb.UpdatedAt = now
	hb.ReleasedAt = &now
	if next == StatusReleased {
		rt := ReleaseAdminResolution
		hb.ReleaseType = &rt
	}
	if err := s.store.UpdateHeldBalance(ctx, tx, hb); err != nil {
		return Dispute{}, fmt.Errorf("update held balance: %w", err)
	}

	old := d.Status
	d.Status = resolutionType
	d.Resolution = resolution
	d.ResolvedBy = &adminID
	d.ResolvedAt = &now
	d.UpdatedAt = now
	if err := s.store.UpdateDispute(ctx, tx, d); err != nil {
		return Dispute{}, fmt.Errorf("update dispute: %w", err)
	}
	if err := s.store.AppendAudit(ctx, tx, AuditEntry{
		ID:        uuid.New().String(),
		DisputeID: d.ID,
		ActorID:   adminID,
		Action:    "dispute_resolved",
		OldValue:  string(old),
		NewValue:  string(resolutionType),
		CreatedAt: now,
	}); err != nil {
		return Dispute{}, fmt.Errorf("append audit: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// ConfirmDeliveryReceipt is the customer-facing release entry point for a
// completed wallet-paid order.
func (s *Service) ConfirmDeliveryReceipt(ctx context.Context, orderID, customerID string) (HeldBalance, error) {
	if err := s.checkProtectedOrder(ctx, orderID, customerID); err != nil {
		return HeldBalance{}, err
	}
	return s.Release(ctx, orderID, ReleaseCustomerConfirmation, "customer confirmed delivery")
}

// CreateOrderDispute opens a dispute on a completed wallet-paid order and
// notifies the assigned driver. Notification failures are logged only.
func (s *Service) CreateOrderDispute(ctx context.Context, orderID, customerID, reason, evidence string) (Dispute, error) {
	if err := s.checkProtectedOrder(ctx, orderID, customerID); err != nil {
		return Dispute{}, err
	}
	d, err := s.CreateDispute(ctx, orderID, customerID, reason, evidence)
	if err != nil {
		return Dispute{}, err
	}
	if d.DriverID != nil && s.notifier != nil {
		if nerr := s.notifier.SendCustomNotification(ctx, []string{*d.DriverID},
			map[string]string{"en": "A dispute was opened on your delivery", "ar": "تم فتح نزاع على طلب قمت بتوصيله"},
			map[string]string{"en": reason, "ar": reason},
			map[string]string{"dispute_id": d.ID, "order_id": orderID},
		); nerr != nil {
			log.Printf("[escrow] dispute notification failed: dispute=%s err=%v", d.ID, nerr)
		}
	}
	return d, nil
}

// ListDisputes returns disputes for the admin review queue, optionally
// filtered by status.
func (s *Service) ListDisputes(ctx context.Context, status DisputeStatus, limit int) ([]Dispute, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListDisputes(ctx, status, limit)
}

func (s *Service) checkProtectedOrder(ctx context.Context, orderID, customerID string) error {
	o, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CustomerID != customerID {
		return domain.ErrForbidden
	}
	if o.PaymentMethod != orders.PaymentWallet {
		return fmt.Errorf("%w: order was not paid by wallet", domain.ErrInvalidState)
	}
	if o.Status != orders.StatusCompleted {
		return fmt.Errorf("%w: order is %s, not COMPLETED", domain.ErrInvalidState, o.Status)
	}
	return nil
}

// ProtectionStatus is the buyer-protection view for an order.
type ProtectionStatus struct {
	HeldBalance        *HeldBalance `json:"held_balance,omitempty"`
	Dispute            *Dispute     `json:"dispute,omitempty"`
	CanConfirmDelivery bool         `json:"can_confirm_delivery"`
	CanDispute         bool         `json:"can_dispute"`
}

// OrderProtectionStatus reports the held balance, any dispute, and what the
// customer may still do.
func (s *Service) OrderProtectionStatus(ctx context.Context, orderID, customerID string) (ProtectionStatus, error) {
	o, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return ProtectionStatus{}, err
	}
	if o.CustomerID != customerID {
		return ProtectionStatus{}, domain.ErrForbidden
	}

	var out ProtectionStatus
	hb, err := s.store.HeldByOrder(ctx, orderID)
	if err == nil {
		out.HeldBalance = &hb
	} else if !errors.Is(err, domain.ErrNotFound) {
		return ProtectionStatus{}, err
	}
	d, err := s.store.DisputeByOrder(ctx, orderID)
	if err != nil {
		return ProtectionStatus{}, err
	}
	out.Dispute = d

	eligible := o.PaymentMethod == orders.PaymentWallet &&
		o.Status == orders.StatusCompleted &&
		out.HeldBalance != nil && out.HeldBalance.Status == StatusHeld
	out.CanConfirmDelivery = eligible
	out.CanDispute = eligible && d == nil
	return out, nil
}

// DeliveryOTP regenerates and persists the hand-off code for a shipped
// wallet-paid order. Each call overwrites the previous code; no expiry is
// tracked.
func (s *Service) DeliveryOTP(ctx context.Context, orderID, customerID string) (string, error) {
	o, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.CustomerID != customerID {
		return "", domain.ErrForbidden
	}
	if o.Status != orders.StatusShipped {
		return "", fmt.Errorf("%w: order is %s, not SHIPPED", domain.ErrInvalidState, o.Status)
	}
	if o.PaymentMethod != orders.PaymentWallet {
		return "", fmt.Errorf("%w: order was not paid by wallet", domain.ErrInvalidState)
	}

	otp, err := generateOTP()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.store.SetOrderOTP(ctx, orderID, otp); err != nil {
		return "", fmt.Errorf("persist otp: %w", err)
	}
	return otp, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
