package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
)

func TestHeldTransitions(t *testing.T) {
	cases := []struct {
		from    HeldStatus
		ev      event
		want    HeldStatus
		invalid bool
	}{
		{StatusHeld, eventRelease, StatusReleased, false},
		{StatusHeld, eventRefund, StatusRefunded, false},
		{StatusHeld, eventDispute, StatusDisputed, false},
		{StatusDisputed, eventResolveRelease, StatusReleased, false},
		{StatusDisputed, eventResolveRefund, StatusRefunded, false},

		{StatusReleased, eventRelease, "", true},
		{StatusReleased, eventRefund, "", true},
		{StatusRefunded, eventRelease, "", true},
		{StatusDisputed, eventRelease, "", true},
		{StatusDisputed, eventRefund, "", true},
		{StatusDisputed, eventDispute, "", true},
		{StatusHeld, eventResolveRelease, "", true},
	}

	for _, tc := range cases {
		got, err := nextHeldStatus(tc.from, tc.ev)
		if tc.invalid {
			assert.ErrorIs(t, err, domain.ErrInvalidState, "%s + %s", tc.from, tc.ev)
			continue
		}
		assert.NoError(t, err, "%s + %s", tc.from, tc.ev)
		assert.Equal(t, tc.want, got)
	}
}
