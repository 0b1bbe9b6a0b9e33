package escrow

import (
	"context"
	"log"
)

// SweepResult summarizes one auto-release pass.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Released int `json:"released"`
	Failed   int `json:"failed"`
}

// SweepAutoRelease releases every HELD balance whose auto-release date has
// passed. Each record is its own transaction: a failure (including losing the
// race against a concurrent dispute or confirmation) is logged and the sweep
// moves on.
func (s *Service) SweepAutoRelease(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = 100
	}
	orderIDs, err := s.store.ListAutoReleasable(ctx, s.now(), limit)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Scanned: len(orderIDs)}
	for _, orderID := range orderIDs {
		if _, err := s.Release(ctx, orderID, ReleaseTimeout, "auto release after protection window"); err != nil {
			res.Failed++
			log.Printf("[escrow] auto release failed: order=%s err=%v", orderID, err)
			continue
		}
		res.Released++
	}
	if res.Scanned > 0 {
		log.Printf("[escrow] auto release sweep: scanned=%d released=%d failed=%d", res.Scanned, res.Released, res.Failed)
	}
	return res, nil
}
