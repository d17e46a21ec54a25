// Package stripetest builds signed Stripe webhook payloads for tests.
package stripetest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
)

// SignatureHeader renders a Stripe-Signature header for payload.
func SignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// PaymentIntentEvent builds a signed payment intent event. An empty eventID
// leaves the id out of the payload.
func PaymentIntentEvent(t *testing.T, secret, eventID string, eventType stripe.EventType, intentID string, metadata map[string]string) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       intentID,
		"object":   "payment_intent",
		"status":   "succeeded",
		"metadata": metadata,
	})
	if err != nil {
		t.Fatalf("marshal payment intent: %v", err)
	}
	event := map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        string(eventType),
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": json.RawMessage(raw)},
	}
	if eventID == "" {
		delete(event, "id")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, SignatureHeader(payload, secret, time.Now().Unix())
}
