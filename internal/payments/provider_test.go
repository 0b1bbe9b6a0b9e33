package payments_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otlob-dev/otlob-wallet/internal/payments"
)

func TestWebhookSignatureRoundTrip(t *testing.T) {
	sig := payments.WebhookSignature("secret", "inv-1", "key-1", "card")
	assert.Len(t, sig, 64)

	assert.True(t, payments.VerifyWebhookSignature("secret", "inv-1", "key-1", "card", sig))
	// Providers sometimes send the hex uppercased.
	assert.True(t, payments.VerifyWebhookSignature("secret", "inv-1", "key-1", "card", strings.ToUpper(sig)))
}

func TestWebhookSignatureRejectsTampering(t *testing.T) {
	sig := payments.WebhookSignature("secret", "inv-1", "key-1", "card")

	assert.False(t, payments.VerifyWebhookSignature("secret", "inv-2", "key-1", "card", sig))
	assert.False(t, payments.VerifyWebhookSignature("secret", "inv-1", "key-2", "card", sig))
	assert.False(t, payments.VerifyWebhookSignature("secret", "inv-1", "key-1", "wallet", sig))
	assert.False(t, payments.VerifyWebhookSignature("other-secret", "inv-1", "key-1", "card", sig))
	assert.False(t, payments.VerifyWebhookSignature("secret", "inv-1", "key-1", "card", ""))
}
