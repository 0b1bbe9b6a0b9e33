package withdraw

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// Store is the persistence surface for the withdrawal workflow.
type Store interface {
	Begin(ctx context.Context) (store.Tx, error)

	InsertWithdrawRequest(ctx context.Context, r Request) error
	WithdrawRequestForUpdate(ctx context.Context, tx store.Tx, id string) (Request, error)
	WithdrawRequest(ctx context.Context, id string) (Request, error)
	UpdateWithdrawRequest(ctx context.Context, tx store.Tx, r Request) error
	UpdateWithdrawRequestDirect(ctx context.Context, r Request) error
	HasPendingWithdrawRequest(ctx context.Context, userID string) (bool, error)
	ListWithdrawRequestsByUser(ctx context.Context, userID string, limit int) ([]Request, error)
	ListPendingWithdrawRequests(ctx context.Context, limit int) ([]Request, error)

	// PayoutAccountOwner resolves the owner of a stored payout account.
	PayoutAccountOwner(ctx context.Context, accountID string) (string, error)
}

// Service runs the payout workflow from request through admin review to the
// final atomic debit.
type Service struct {
	store  Store
	ledger *wallet.Ledger
	now    func() time.Time
}

func NewService(s Store, l *wallet.Ledger) *Service {
	return &Service{store: s, ledger: l, now: time.Now}
}

func (s *Service) SetNow(now func() time.Time) { s.now = now }

// CreateInput is a new payout request.
type CreateInput struct {
	UserID          string
	Role            wallet.Role
	Amount          float64
	Method          string
	PayoutAccountID string
}

// Create validates the request against the live balance and snapshots it.
// The snapshot is never trusted again; Complete re-validates.
func (s *Service) Create(ctx context.Context, in CreateInput) (Request, error) {
	if in.Amount <= 0 {
		return Request{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	pending, err := s.store.HasPendingWithdrawRequest(ctx, in.UserID)
	if err != nil {
		return Request{}, err
	}
	if pending {
		return Request{}, fmt.Errorf("%w: a pending withdraw request already exists", domain.ErrInvalidState)
	}

	ownerID, err := s.store.PayoutAccountOwner(ctx, in.PayoutAccountID)
	if err != nil {
		return Request{}, err
	}
	if ownerID != in.UserID {
		return Request{}, domain.ErrForbidden
	}

	balance, err := s.ledger.Balance(ctx, wallet.OwnerForRole(in.Role, in.UserID))
	if err != nil {
		return Request{}, err
	}
	if in.Amount > balance {
		return Request{}, domain.ErrInsufficientFunds
	}

	now := s.now()
	r := Request{
		ID:              uuid.New().String(),
		UserID:          in.UserID,
		Role:            in.Role,
		Amount:          in.Amount,
		Status:          StatusPending,
		Method:          in.Method,
		PayoutAccountID: in.PayoutAccountID,
		BalanceSnapshot: balance,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertWithdrawRequest(ctx, r); err != nil {
		return Request{}, fmt.Errorf("insert withdraw request: %w", err)
	}
	return r, nil
}

// Approve marks a PENDING request ready for completion.
func (s *Service) Approve(ctx context.Context, requestID, adminID, notes string) (Request, error) {
	return s.review(ctx, requestID, adminID, notes, StatusApproved)
}

// Reject terminates a PENDING request without moving money.
func (s *Service) Reject(ctx context.Context, requestID, adminID, notes string) (Request, error) {
	return s.review(ctx, requestID, adminID, notes, StatusRejected)
}

func (s *Service) review(ctx context.Context, requestID, adminID, notes string, to Status) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx)

	r, err := s.store.WithdrawRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return Request{}, err
	}
	if r.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: request is %s, not PENDING", domain.ErrInvalidState, r.Status)
	}

	now := s.now()
	r.Status = to
	r.AdminNotes = notes
	r.ReviewedBy = &adminID
	r.ReviewedAt = &now
	r.UpdatedAt = now
	if err := s.store.UpdateWithdrawRequest(ctx, tx, r); err != nil {
		return Request{}, fmt.Errorf("update withdraw request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Complete performs the payout debit. The live balance is re-read under the
// wallet row lock inside the same transaction; the creation-time snapshot is
// never trusted. Re-invocation on a COMPLETED request is rejected.
func (s *Service) Complete(ctx context.Context, requestID, adminID string) (Request, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx)

	r, err := s.store.WithdrawRequestForUpdate(ctx, tx, requestID)
	if err != nil {
		return Request{}, err
	}
	if r.Status != StatusApproved && r.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: request is %s", domain.ErrInvalidState, r.Status)
	}

	reqID := r.ID
	if _, err := s.ledger.DebitTx(ctx, tx, wallet.OwnerForRole(r.Role, r.UserID), r.Amount, wallet.Entry{
		Type:      wallet.TxWithdrawal,
		Status:    wallet.PayPaid,
		Reference: &reqID,
		Metadata:  map[string]string{"source": "withdraw", "method": r.Method},
	}); err != nil {
		return Request{}, err
	}

	now := s.now()
	ref := uuid.New().String()
	r.Status = StatusCompleted
	r.Reference = &ref
	r.ReviewedBy = &adminID
	r.CompletedAt = &now
	r.UpdatedAt = now
	if err := s.store.UpdateWithdrawRequest(ctx, tx, r); err != nil {
		return Request{}, fmt.Errorf("update withdraw request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return r, nil
}

// ListMine returns the user's requests, newest first.
func (s *Service) ListMine(ctx context.Context, userID string, limit int) ([]Request, error) {
	return s.store.ListWithdrawRequestsByUser(ctx, userID, limit)
}

// ListPending returns requests awaiting review.
func (s *Service) ListPending(ctx context.Context, limit int) ([]Request, error) {
	return s.store.ListPendingWithdrawRequests(ctx, limit)
}
