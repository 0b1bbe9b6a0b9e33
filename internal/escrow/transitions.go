package escrow

import (
	"fmt"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
)

// event is a state-machine input. Release and refund only apply to HELD
// records; the resolve events are the admin-resolution variants that move a
// DISPUTED record to its terminal state.
type event string

const (
	eventRelease        event = "release"
	eventRefund         event = "refund"
	eventDispute        event = "dispute"
	eventResolveRelease event = "resolve_release"
	eventResolveRefund  event = "resolve_refund"
)

// heldTransitions is the single source of truth for the HeldBalance state
// machine. Every mutating operation resolves its move here inside the store
// transaction; there are no scattered status-equality checks.
var heldTransitions = map[HeldStatus]map[event]HeldStatus{
	StatusHeld: {
		eventRelease: StatusReleased,
		eventRefund:  StatusRefunded,
		eventDispute: StatusDisputed,
	},
	StatusDisputed: {
		eventResolveRelease: StatusReleased,
		eventResolveRefund:  StatusRefunded,
	},
}

func nextHeldStatus(from HeldStatus, ev event) (HeldStatus, error) {
	if to, ok := heldTransitions[from][ev]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: held balance is %s, cannot %s", domain.ErrInvalidState, from, ev)
}
