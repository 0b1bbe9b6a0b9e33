package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
)

// Store is the persistence surface the ledger needs. The postgres and memory
// implementations in internal/store satisfy it.
type Store interface {
	Begin(ctx context.Context) (store.Tx, error)

	// AccountForUpdate loads the owner's account under a row lock, creating
	// it with a zero balance if it does not exist yet.
	AccountForUpdate(ctx context.Context, tx store.Tx, owner Owner) (Account, error)
	UpdateBalance(ctx context.Context, tx store.Tx, owner Owner, balance float64, at time.Time) error
	AppendTransaction(ctx context.Context, tx store.Tx, txn Transaction) error

	// SumJournal derives the balance from the journal: PAID deposits minus
	// withdrawals minus payments.
	SumJournal(ctx context.Context, tx store.Tx, owner Owner) (float64, error)
	Account(ctx context.Context, owner Owner) (Account, error)
	ListTransactions(ctx context.Context, owner Owner, limit int) ([]Transaction, error)
}

// Ledger applies every balance mutation together with exactly one journal row
// inside one store transaction. The wallet row lock makes the check-then-act
// on debits safe under concurrent writers.
type Ledger struct {
	store    Store
	currency string
	now      func() time.Time
}

func NewLedger(s Store, currency string) *Ledger {
	return &Ledger{store: s, currency: currency, now: time.Now}
}

// SetNow overrides the clock, used by tests and by the sweep for drift-safe
// release arithmetic.
func (l *Ledger) SetNow(now func() time.Time) { l.now = now }

func (l *Ledger) Begin(ctx context.Context) (store.Tx, error) { return l.store.Begin(ctx) }

// CreditTx appends one journal row and raises the cached balance inside the
// caller's transaction.
func (l *Ledger) CreditTx(ctx context.Context, tx store.Tx, owner Owner, amount float64, entry Entry) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("%w: credit amount must be positive", domain.ErrInvalidInput)
	}
	acct, err := l.store.AccountForUpdate(ctx, tx, owner)
	if err != nil {
		return Transaction{}, fmt.Errorf("lock wallet %s: %w", owner, err)
	}
	now := l.now()
	txn := l.buildTransaction(owner, amount, entry, now)
	if err := l.store.AppendTransaction(ctx, tx, txn); err != nil {
		return Transaction{}, fmt.Errorf("append journal row: %w", err)
	}
	if err := l.store.UpdateBalance(ctx, tx, owner, acct.Balance+amount, now); err != nil {
		return Transaction{}, fmt.Errorf("update balance: %w", err)
	}
	return txn, nil
}

// DebitTx checks sufficiency under the row lock, then appends one journal row
// and lowers the cached balance. The check never happens outside the
// transaction.
func (l *Ledger) DebitTx(ctx context.Context, tx store.Tx, owner Owner, amount float64, entry Entry) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("%w: debit amount must be positive", domain.ErrInvalidInput)
	}
	acct, err := l.store.AccountForUpdate(ctx, tx, owner)
	if err != nil {
		return Transaction{}, fmt.Errorf("lock wallet %s: %w", owner, err)
	}
	if acct.Balance < amount {
		return Transaction{}, domain.ErrInsufficientFunds
	}
	now := l.now()
	txn := l.buildTransaction(owner, amount, entry, now)
	if err := l.store.AppendTransaction(ctx, tx, txn); err != nil {
		return Transaction{}, fmt.Errorf("append journal row: %w", err)
	}
	if err := l.store.UpdateBalance(ctx, tx, owner, acct.Balance-amount, now); err != nil {
		return Transaction{}, fmt.Errorf("update balance: %w", err)
	}
	return txn, nil
}

// Credit opens its own transaction around CreditTx.
func (l *Ledger) Credit(ctx context.Context, owner Owner, amount float64, entry Entry) (Transaction, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx)
	txn, err := l.CreditTx(ctx, tx, owner, amount, entry)
	if err != nil {
		return Transaction{}, err
	}
	return txn, tx.Commit(ctx)
}

// Debit opens its own transaction around DebitTx.
func (l *Ledger) Debit(ctx context.Context, owner Owner, amount float64, entry Entry) (Transaction, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx)
	txn, err := l.DebitTx(ctx, tx, owner, amount, entry)
	if err != nil {
		return Transaction{}, err
	}
	return txn, tx.Commit(ctx)
}

// Balance derives the owner's balance from the journal.
func (l *Ledger) Balance(ctx context.Context, owner Owner) (float64, error) {
	return l.store.SumJournal(ctx, nil, owner)
}

// BalanceTx derives the balance inside the caller's transaction, sharing its
// isolation with concurrent writers.
func (l *Ledger) BalanceTx(ctx context.Context, tx store.Tx, owner Owner) (float64, error) {
	return l.store.SumJournal(ctx, tx, owner)
}

// Transactions lists the owner's journal, newest first.
func (l *Ledger) Transactions(ctx context.Context, owner Owner, limit int) ([]Transaction, error) {
	return l.store.ListTransactions(ctx, owner, limit)
}

// Reconciliation compares the cached balance column against the journal sum.
type Reconciliation struct {
	Owner         Owner   `json:"owner"`
	CachedBalance float64 `json:"cached_balance"`
	JournalSum    float64 `json:"journal_sum"`
	Consistent    bool    `json:"consistent"`
}

// Reconcile reports whether the cached balance still matches the journal.
func (l *Ledger) Reconcile(ctx context.Context, owner Owner) (Reconciliation, error) {
	acct, err := l.store.Account(ctx, owner)
	if err != nil {
		return Reconciliation{}, err
	}
	sum, err := l.store.SumJournal(ctx, nil, owner)
	if err != nil {
		return Reconciliation{}, err
	}
	diff := acct.Balance - sum
	if diff < 0 {
		diff = -diff
	}
	return Reconciliation{Owner: owner, CachedBalance: acct.Balance, JournalSum: sum, Consistent: diff < 0.005}, nil
}

func (l *Ledger) buildTransaction(owner Owner, amount float64, entry Entry, at time.Time) Transaction {
	status := entry.Status
	if status == "" {
		status = PayPaid
	}
	return Transaction{
		ID:            uuid.New().String(),
		OwnerID:       owner.ID,
		Role:          owner.Role,
		Amount:        amount,
		Type:          entry.Type,
		PaymentStatus: status,
		OrderID:       entry.OrderID,
		Reference:     entry.Reference,
		Metadata:      entry.Metadata,
		CreatedAt:     at,
	}
}
