package memory

import (
	"context"
	"sort"
	"time"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

func (s *Store) AccountForUpdate(_ context.Context, tx store.Tx, owner wallet.Owner) (wallet.Account, error) {
	defer s.enter(tx)()
	a, ok := s.st.accounts[owner]
	if !ok {
		now := time.Now()
		a = wallet.Account{OwnerID: owner.ID, Role: owner.Role, Currency: "EGP", CreatedAt: now, UpdatedAt: now}
		s.st.accounts[owner] = a
	}
	return a, nil
}

func (s *Store) UpdateBalance(_ context.Context, tx store.Tx, owner wallet.Owner, balance float64, at time.Time) error {
	defer s.enter(tx)()
	a, ok := s.st.accounts[owner]
	if !ok {
		return domain.ErrNotFound
	}
	a.Balance = balance
	a.UpdatedAt = at
	s.st.accounts[owner] = a
	return nil
}

func (s *Store) AppendTransaction(_ context.Context, tx store.Tx, txn wallet.Transaction) error {
	defer s.enter(tx)()
	s.st.journal = append(s.st.journal, txn)
	return nil
}

func (s *Store) SumJournal(_ context.Context, tx store.Tx, owner wallet.Owner) (float64, error) {
	defer s.enter(tx)()
	var sum float64
	for _, t := range s.st.journal {
		if t.OwnerID != owner.ID || t.Role != owner.Role {
			continue
		}
		switch t.Type {
		case wallet.TxDeposit:
			if t.PaymentStatus == wallet.PayPaid {
				sum += t.Amount
			}
		case wallet.TxWithdrawal, wallet.TxPayment:
			sum -= t.Amount
		}
	}
	return sum, nil
}

func (s *Store) Account(_ context.Context, owner wallet.Owner) (wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.accounts[owner]
	if !ok {
		return wallet.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListTransactions(_ context.Context, owner wallet.Owner, limit int) ([]wallet.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wallet.Transaction
	for _, t := range s.st.journal {
		if t.OwnerID == owner.ID && t.Role == owner.Role {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
