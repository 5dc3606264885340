package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a Stripe-Signature header for payload
func signPayload(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

func stripeEvent(eventType, sessionID, paymentStatus string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_123",
  "object": "event",
  "api_version": "2020-08-27",
  "type": %q,
  "account": "acct_luigis",
  "created": 1700000000,
  "data": {
    "object": {
      "id": %q,
      "object": "checkout.session",
      "amount_total": %d,
      "currency": "usd",
      "payment_status": %q,
      "metadata": {"order_id": "8d3e6f7a-0000-4000-8000-000000000001"}
    }
  }
}`, eventType, sessionID, amount, paymentStatus))
}

func TestStripeWebhookVerifier_ParseEvent(t *testing.T) {
	verifier := NewStripeWebhookVerifier(testWebhookSecret)

	tests := []struct {
		name     string
		payload  []byte
		expected PaymentEvent
	}{
		{
			name:    "Completed and paid",
			payload: stripeEvent("checkout.session.completed", "cs_test_1", "paid", 3334),
			expected: CheckoutCompleted{
				EventID: "evt_123", SessionID: "cs_test_1", AccountID: "acct_luigis", AmountCents: 3334, Paid: true,
			},
		},
		{
			name:    "Completed but payment pending",
			payload: stripeEvent("checkout.session.completed", "cs_test_2", "unpaid", 3334),
			expected: CheckoutCompleted{
				EventID: "evt_123", SessionID: "cs_test_2", AccountID: "acct_luigis", AmountCents: 3334, Paid: false,
			},
		},
		{
			name:    "Delayed payment succeeded",
			payload: stripeEvent("checkout.session.async_payment_succeeded", "cs_test_3", "paid", 1500),
			expected: CheckoutCompleted{
				EventID: "evt_123", SessionID: "cs_test_3", AccountID: "acct_luigis", AmountCents: 1500, Paid: true,
			},
		},
		{
			name:     "Expired",
			payload:  stripeEvent("checkout.session.expired", "cs_test_4", "unpaid", 3334),
			expected: CheckoutExpired{EventID: "evt_123", SessionID: "cs_test_4", AccountID: "acct_luigis"},
		},
		{
			name:     "Unhandled type",
			payload:  stripeEvent("charge.refunded", "cs_test_5", "paid", 3334),
			expected: UnknownEvent{EventID: "evt_123", Type: "charge.refunded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := verifier.ParseEvent(tt.payload, signPayload(tt.payload, testWebhookSecret, time.Now()))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, event)
		})
	}
}

func TestStripeWebhookVerifier_RejectsBadSignatures(t *testing.T) {
	verifier := NewStripeWebhookVerifier(testWebhookSecret)
	payload := stripeEvent("checkout.session.completed", "cs_test_1", "paid", 3334)

	tests := []struct {
		name   string
		header string
	}{
		{name: "Missing header", header: ""},
		{name: "Wrong secret", header: signPayload(payload, "whsec_other", time.Now())},
		{name: "Stale timestamp", header: signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
		{name: "Garbage", header: "t=abc,v1=zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := verifier.ParseEvent(payload, tt.header)
			assert.Error(t, err)
			assert.Nil(t, event)
		})
	}

	t.Run("Tampered payload", func(t *testing.T) {
		header := signPayload(payload, testWebhookSecret, time.Now())
		tampered := stripeEvent("checkout.session.completed", "cs_test_1", "paid", 1)
		_, err := verifier.ParseEvent(tampered, header)
		assert.Error(t, err)
	})
}
