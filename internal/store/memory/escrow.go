package memory

import (
	"context"
	"sort"
	"time"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/escrow"
	"github.com/otlob-dev/otlob-wallet/internal/orders"
	"github.com/otlob-dev/otlob-wallet/internal/store"
)

func (s *Store) InsertHeldBalance(_ context.Context, tx store.Tx, hb escrow.HeldBalance) error {
	defer s.enter(tx)()
	s.st.holds[hb.ID] = hb
	return nil
}

func (s *Store) heldByOrder(orderID string) (escrow.HeldBalance, bool) {
	var latest escrow.HeldBalance
	found := false
	for _, hb := range s.st.holds {
		if hb.OrderID != orderID {
			continue
		}
		if !found || hb.CreatedAt.After(latest.CreatedAt) {
			latest = hb
			found = true
		}
	}
	return latest, found
}

func (s *Store) HeldByOrderForUpdate(_ context.Context, tx store.Tx, orderID string) (escrow.HeldBalance, error) {
	defer s.enter(tx)()
	hb, ok := s.heldByOrder(orderID)
	if !ok {
		return escrow.HeldBalance{}, domain.ErrNotFound
	}
	return hb, nil
}

func (s *Store) HeldByOrder(_ context.Context, orderID string) (escrow.HeldBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hb, ok := s.heldByOrder(orderID)
	if !ok {
		return escrow.HeldBalance{}, domain.ErrNotFound
	}
	return hb, nil
}

func (s *Store) UpdateHeldBalance(_ context.Context, tx store.Tx, hb escrow.HeldBalance) error {
	defer s.enter(tx)()
	if _, ok := s.st.holds[hb.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.holds[hb.ID] = hb
	return nil
}

func (s *Store) ListAutoReleasable(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type due struct {
		orderID string
		at      time.Time
	}
	var dues []due
	for _, hb := range s.st.holds {
		if hb.Status == escrow.StatusHeld && !hb.AutoReleaseDate.After(now) {
			dues = append(dues, due{hb.OrderID, hb.AutoReleaseDate})
		}
	}
	sort.Slice(dues, func(i, j int) bool { return dues[i].at.Before(dues[j].at) })
	if len(dues) > limit {
		dues = dues[:limit]
	}
	out := make([]string, 0, len(dues))
	for _, d := range dues {
		out = append(out, d.orderID)
	}
	return out, nil
}

func (s *Store) InsertDispute(_ context.Context, tx store.Tx, d escrow.Dispute) error {
	defer s.enter(tx)()
	s.st.disputes[d.ID] = d
	return nil
}

func (s *Store) DisputeByIDForUpdate(_ context.Context, tx store.Tx, id string) (escrow.Dispute, error) {
	defer s.enter(tx)()
	d, ok := s.st.disputes[id]
	if !ok {
		return escrow.Dispute{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *Store) DisputeByOrder(_ context.Context, orderID string) (*escrow.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *escrow.Dispute
	for _, d := range s.st.disputes {
		if d.OrderID != orderID {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			dd := d
			latest = &dd
		}
	}
	return latest, nil
}

func (s *Store) ListDisputes(_ context.Context, status escrow.DisputeStatus, limit int) ([]escrow.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []escrow.Dispute
	for _, d := range s.st.disputes {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateDispute(_ context.Context, tx store.Tx, d escrow.Dispute) error {
	defer s.enter(tx)()
	if _, ok := s.st.disputes[d.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.disputes[d.ID] = d
	return nil
}

func (s *Store) AppendAudit(_ context.Context, tx store.Tx, entry escrow.AuditEntry) error {
	defer s.enter(tx)()
	s.st.audits = append(s.st.audits, entry)
	return nil
}

// AuditEntries returns the audit log for a dispute, used by tests.
func (s *Store) AuditEntries(disputeID string) []escrow.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []escrow.AuditEntry
	for _, e := range s.st.audits {
		if e.DisputeID == disputeID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) OrderByID(_ context.Context, orderID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[orderID]
	if !ok {
		return orders.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *Store) SetOrderOTP(_ context.Context, orderID, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.DeliveryOTP = &otp
	s.st.orders[orderID] = o
	return nil
}
