package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// amountTolerance absorbs provider rounding; anything larger is an integrity
// signal, never a partial accept.
const amountTolerance = 0.01

// Store is the persistence surface for payment settlement. The confirmation
// path runs under serializable isolation.
type Store interface {
	Begin(ctx context.Context) (store.Tx, error)
	BeginSerializable(ctx context.Context) (store.Tx, error)

	InsertPaymentLog(ctx context.Context, pl PaymentLog) error
	PaymentLogByInvoice(ctx context.Context, invoiceID string) (PaymentLog, error)
	PaymentLogForUpdate(ctx context.Context, tx store.Tx, id string) (PaymentLog, error)
	UpdatePaymentLog(ctx context.Context, tx store.Tx, pl PaymentLog) error
	UpdatePaymentLogDirect(ctx context.Context, pl PaymentLog) error
}

// Service reconciles top-ups against the external provider, crediting the
// ledger at most once per invoice regardless of how many times the triggering
// event is delivered.
type Service struct {
	store    Store
	ledger   *wallet.Ledger
	provider Provider
	currency string
	now      func() time.Time
}

func NewService(s Store, l *wallet.Ledger, p Provider, currency string) *Service {
	return &Service{store: s, ledger: l, provider: p, currency: currency, now: time.Now}
}

func (s *Service) SetNow(now func() time.Time) { s.now = now }

// CreateTopUp opens a PENDING payment log and requests a hosted payment link.
// A provider failure rolls the log to FAILED and surfaces as retryable.
func (s *Service) CreateTopUp(ctx context.Context, userID string, role wallet.Role, amount float64, redirectURL string) (string, PaymentLog, error) {
	if amount <= 0 {
		return "", PaymentLog{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	now := s.now()
	pl := PaymentLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		Amount:    amount,
		Currency:  s.currency,
		Status:    LogPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertPaymentLog(ctx, pl); err != nil {
		return "", PaymentLog{}, fmt.Errorf("insert payment log: %w", err)
	}

	inv, err := s.provider.CreateInvoice(ctx, InvoiceRequest{
		Amount:      amount,
		Currency:    s.currency,
		CustomerID:  userID,
		RedirectURL: redirectURL,
	})
	if err != nil {
		log.Printf("[payments] invoice creation failed: log=%s err=%v", pl.ID, err)
		pl.Status = LogFailed
		pl.IsProcessed = true
		pl.UpdatedAt = s.now()
		if uerr := s.store.UpdatePaymentLogDirect(ctx, pl); uerr != nil {
			log.Printf("[payments] failed to mark log failed: log=%s err=%v", pl.ID, uerr)
		}
		return "", PaymentLog{}, domain.ErrProviderUnavailable
	}

	pl.InvoiceID = inv.InvoiceID
	pl.InvoiceKey = inv.InvoiceKey
	pl.UpdatedAt = s.now()
	if err := s.store.UpdatePaymentLogDirect(ctx, pl); err != nil {
		return "", PaymentLog{}, fmt.Errorf("store invoice id: %w", err)
	}
	return inv.URL, pl, nil
}

// VerifyPayment reconciles one invoice against the provider. Safe to call
// from the webhook, a poll, or both at once: the log is credited at most
// once, and an already-processed log returns its cached terminal result.
func (s *Service) VerifyPayment(ctx context.Context, invoiceID string) (VerifyResult, error) {
	pl, err := s.store.PaymentLogByInvoice(ctx, invoiceID)
	if err != nil {
		return VerifyResult{}, err
	}
	if pl.IsProcessed {
		return VerifyResult{Status: pl.Status, Data: &pl}, nil
	}

	// Never trust a client-asserted status; ask the provider directly.
	st, err := s.provider.GetInvoiceStatus(ctx, invoiceID)
	if err != nil {
		log.Printf("[payments] provider status check failed: invoice=%s err=%v", invoiceID, err)
		return VerifyResult{}, domain.ErrProviderUnavailable
	}
	raw, _ := json.Marshal(st)

	switch st.Status {
	case "paid":
		// fall through to amount verification below
	case "failed", "expired", "cancelled":
		pl.Status = LogFailed
		pl.IsProcessed = true
		pl.ProviderResponse = raw
		pl.UpdatedAt = s.now()
		if err := s.store.UpdatePaymentLogDirect(ctx, pl); err != nil {
			return VerifyResult{}, fmt.Errorf("mark failed: %w", err)
		}
		return VerifyResult{Status: LogFailed, Data: &pl}, nil
	default:
		// Still pending on the provider side; leave the log retryable.
		return VerifyResult{Status: LogPending, Data: &pl}, nil
	}

	if math.Abs(st.Amount-pl.Amount) > amountTolerance || !strings.EqualFold(st.Currency, pl.Currency) {
		log.Printf("[payments] amount mismatch: invoice=%s logged=%.2f %s provider=%.2f %s",
			invoiceID, pl.Amount, pl.Currency, st.Amount, st.Currency)
		pl.Status = LogFailed
		pl.IsProcessed = true
		pl.ProviderResponse = raw
		pl.UpdatedAt = s.now()
		if err := s.store.UpdatePaymentLogDirect(ctx, pl); err != nil {
			return VerifyResult{}, fmt.Errorf("mark failed: %w", err)
		}
		return VerifyResult{Status: LogFailed, Data: &pl}, fmt.Errorf("%w: provider amount disagrees with logged amount", domain.ErrIntegrityViolation)
	}

	confirmed, err := s.confirm(ctx, pl.ID, raw)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Status: confirmed.Status, Data: &confirmed}, nil
}

// confirm is the critical section: one serializable transaction that
// re-checks isProcessed, marks the log SUCCESS and appends exactly one
// top-up journal row. Two racing verifications both reach here; the second
// one sees isProcessed and returns the cached row without crediting.
func (s *Service) confirm(ctx context.Context, logID string, raw json.RawMessage) (PaymentLog, error) {
	tx, err := s.store.BeginSerializable(ctx)
	if err != nil {
		return PaymentLog{}, err
	}
	defer tx.Rollback(ctx)

	pl, err := s.store.PaymentLogForUpdate(ctx, tx, logID)
	if err != nil {
		return PaymentLog{}, err
	}
	if pl.IsProcessed {
		// Lost the race to a concurrent verification; its result stands.
		return pl, nil
	}

	now := s.now()
	pl.Status = LogSuccess
	pl.IsProcessed = true
	pl.ProviderResponse = raw
	pl.UpdatedAt = now
	if err := s.store.UpdatePaymentLog(ctx, tx, pl); err != nil {
		return PaymentLog{}, fmt.Errorf("mark success: %w", err)
	}

	ref := pl.ID
	if _, err := s.ledger.CreditTx(ctx, tx, wallet.OwnerForRole(pl.Role, pl.UserID), pl.Amount, wallet.Entry{
		Type:      wallet.TxDeposit,
		Status:    wallet.PayPaid,
		Reference: &ref,
		Metadata:  map[string]string{"source": "topup", "invoice_id": pl.InvoiceID},
	}); err != nil {
		return PaymentLog{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PaymentLog{}, err
	}
	return pl, nil
}
