package memory

import (
	"context"
	"sort"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/withdraw"
)

func (s *Store) InsertWithdrawRequest(_ context.Context, r withdraw.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.withdraws[r.ID] = r
	return nil
}

func (s *Store) WithdrawRequestForUpdate(_ context.Context, tx store.Tx, id string) (withdraw.Request, error) {
	defer s.enter(tx)()
	r, ok := s.st.withdraws[id]
	if !ok {
		return withdraw.Request{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) WithdrawRequest(_ context.Context, id string) (withdraw.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.withdraws[id]
	if !ok {
		return withdraw.Request{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) UpdateWithdrawRequest(_ context.Context, tx store.Tx, r withdraw.Request) error {
	defer s.enter(tx)()
	if _, ok := s.st.withdraws[r.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.withdraws[r.ID] = r
	return nil
}

func (s *Store) UpdateWithdrawRequestDirect(ctx context.Context, r withdraw.Request) error {
	return s.UpdateWithdrawRequest(ctx, nil, r)
}

func (s *Store) HasPendingWithdrawRequest(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.st.withdraws {
		if r.UserID == userID && r.Status == withdraw.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListWithdrawRequestsByUser(_ context.Context, userID string, limit int) ([]withdraw.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []withdraw.Request
	for _, r := range s.st.withdraws {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListPendingWithdrawRequests(_ context.Context, limit int) ([]withdraw.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []withdraw.Request
	for _, r := range s.st.withdraws {
		if r.Status == withdraw.StatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) PayoutAccountOwner(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.st.payoutAccounts[accountID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}
