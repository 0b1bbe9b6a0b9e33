// Package memory is an in-process implementation of the feature store
// interfaces, used by unit tests. A transaction takes a store-wide lock and
// snapshots all state, so Commit publishes atomically and Rollback restores
// the snapshot. Serializing writers this way preserves the row-lock semantics
// the services rely on.
package memory

import (
	"context"
	"sync"

	"github.com/otlob-dev/otlob-wallet/internal/escrow"
	"github.com/otlob-dev/otlob-wallet/internal/notify"
	"github.com/otlob-dev/otlob-wallet/internal/orders"
	"github.com/otlob-dev/otlob-wallet/internal/payments"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
	"github.com/otlob-dev/otlob-wallet/internal/withdraw"
)

type state struct {
	accounts       map[wallet.Owner]wallet.Account
	journal        []wallet.Transaction
	holds          map[string]escrow.HeldBalance
	disputes       map[string]escrow.Dispute
	audits         []escrow.AuditEntry
	paymentLogs    map[string]payments.PaymentLog
	withdraws      map[string]withdraw.Request
	payoutAccounts map[string]string
	orders         map[string]orders.Order
	notifications  []notify.Notification
}

func newState() *state {
	return &state{
		accounts:       make(map[wallet.Owner]wallet.Account),
		holds:          make(map[string]escrow.HeldBalance),
		disputes:       make(map[string]escrow.Dispute),
		paymentLogs:    make(map[string]payments.PaymentLog),
		withdraws:      make(map[string]withdraw.Request),
		payoutAccounts: make(map[string]string),
		orders:         make(map[string]orders.Order),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	c.journal = append(c.journal, st.journal...)
	for k, v := range st.holds {
		c.holds[k] = v
	}
	for k, v := range st.disputes {
		c.disputes[k] = v
	}
	c.audits = append(c.audits, st.audits...)
	for k, v := range st.paymentLogs {
		c.paymentLogs[k] = v
	}
	for k, v := range st.withdraws {
		c.withdraws[k] = v
	}
	for k, v := range st.payoutAccounts {
		c.payoutAccounts[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	c.notifications = append(c.notifications, st.notifications...)
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// memTx holds the store lock for its whole lifetime. The snapshot taken at
// Begin is what Rollback restores.
type memTx struct {
	s        *Store
	snapshot *state
	done     bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.st = t.snapshot
	t.s.mu.Unlock()
	return nil
}

func (s *Store) Begin(_ context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &memTx{s: s, snapshot: s.st.clone()}, nil
}

// BeginSerializable is identical to Begin: the store lock already serializes
// every transaction.
func (s *Store) BeginSerializable(ctx context.Context) (store.Tx, error) {
	return s.Begin(ctx)
}

// enter takes the lock for a call made outside any transaction. Calls made
// with an open transaction already hold it.
func (s *Store) enter(tx store.Tx) func() {
	if tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// SeedOrder installs an order row for tests.
func (s *Store) SeedOrder(o orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.orders[o.ID] = o
}

// SeedPayoutAccount installs a payout account owned by userID.
func (s *Store) SeedPayoutAccount(accountID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.payoutAccounts[accountID] = userID
}

// Notifications returns the persisted in-app notifications.
func (s *Store) Notifications() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Notification, len(s.st.notifications))
	copy(out, s.st.notifications)
	return out
}

func (s *Store) InsertNotifications(_ context.Context, items []notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.notifications = append(s.st.notifications, items...)
	return nil
}
