package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/party-rentals/api/internal/platform/textutil"
)

const (
	// WebhookEventPaymentSucceeded is emitted when a payment intent is captured.
	WebhookEventPaymentSucceeded = "payment_intent.succeeded"
	// WebhookEventPaymentFailed is emitted when a payment attempt fails.
	WebhookEventPaymentFailed = "payment_intent.payment_failed"
)

// ErrWebhookSignature indicates the event payload failed signature verification.
var ErrWebhookSignature = errors.New("payments: webhook signature verification failed")

// WebhookEvent is a verified, normalised gateway notification.
type WebhookEvent struct {
	ID             string
	Type           string
	IntentID       string
	OrderID        string
	AmountReceived int64
	Currency       string
	Metadata       map[string]string
}

// WebhookVerifier checks Stripe webhook signatures and decodes the events the
// order lifecycle cares about.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier builds a verifier for the given endpoint signing secret.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("payments: webhook signing secret is required")
	}
	return &WebhookVerifier{secret: secret}, nil
}

// Verify checks the signature header against the raw payload and returns the
// normalised event. Unhandled event types come back with IntentID empty.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (WebhookEvent, error) {
	if v == nil || v.secret == "" {
		return WebhookEvent{}, errors.New("payments: webhook verifier is not configured")
	}

	// Stripe sends events pinned to the account's API version, which may
	// trail the SDK's.
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	out := WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	switch out.Type {
	case WebhookEventPaymentSucceeded, WebhookEventPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return WebhookEvent{}, fmt.Errorf("payments: decode payment intent event: %w", err)
		}
		out.IntentID = intent.ID
		out.AmountReceived = intent.AmountReceived
		out.Currency = strings.ToLower(string(intent.Currency))
		if metadata := textutil.NormalizeStringMap(intent.Metadata); metadata != nil {
			out.Metadata = metadata
			out.OrderID = metadata["orderId"]
		}
	}

	return out, nil
}
