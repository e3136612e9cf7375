package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/party-rentals/api/internal/payments"
	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/services"
)

const (
	maxWebhookBodySize    = 1 << 20
	stripeSignatureHeader = "Stripe-Signature"
)

// WebhookVerifier checks a raw webhook payload against its signature header.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (payments.WebhookEvent, error)
}

// WebhookHandlers receives payment gateway callbacks and applies them to
// orders. The raw body must be verified before any JSON decoding.
type WebhookHandlers struct {
	verifier WebhookVerifier
	orders   services.OrderService
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewWebhookHandlers constructs a new WebhookHandlers instance.
func NewWebhookHandlers(verifier WebhookVerifier, orders services.OrderService, logger func(ctx context.Context, event string, fields map[string]any)) *WebhookHandlers {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &WebhookHandlers{
		verifier: verifier,
		orders:   orders,
		logger:   logger,
	}
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripe)
}

type webhookAckResponse struct {
	Received bool `json:"received"`
}

func (h *WebhookHandlers) handleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.verifier == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_unavailable", "webhook verification unavailable", http.StatusServiceUnavailable))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		return
	}

	event, err := h.verifier.Verify(payload, r.Header.Get(stripeSignatureHeader))
	if err != nil {
		if errors.Is(err, payments.ErrWebhookSignature) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to parse webhook payload", http.StatusBadRequest))
		return
	}

	switch event.Type {
	case payments.WebhookEventPaymentSucceeded:
		h.recordPayment(ctx, w, event)
		return
	case payments.WebhookEventPaymentFailed:
		h.logger(ctx, "webhooks.stripe.payment_failed", map[string]any{
			"intent_id": event.IntentID,
			"order_id":  event.OrderID,
		})
	}
	writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
}

func (h *WebhookHandlers) recordPayment(ctx context.Context, w http.ResponseWriter, event payments.WebhookEvent) {
	orderID := strings.TrimSpace(event.OrderID)
	if h.orders == nil || orderID == "" {
		h.logger(ctx, "webhooks.stripe.unmatched_payment", map[string]any{
			"intent_id": event.IntentID,
		})
		writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
		return
	}

	_, err := h.orders.RecordPayment(ctx, services.RecordPaymentCommand{
		OrderID:        orderID,
		IntentID:       event.IntentID,
		AmountReceived: event.AmountReceived,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrOrderInvalidInput):
		// Acknowledge so the gateway stops retrying an event we can never apply.
		h.logger(ctx, "webhooks.stripe.payment_unapplied", map[string]any{
			"intent_id": event.IntentID,
			"order_id":  orderID,
			"error":     err.Error(),
		})
	default:
		h.logger(ctx, "webhooks.stripe.record_failed", map[string]any{
			"intent_id": event.IntentID,
			"order_id":  orderID,
			"error":     err.Error(),
		})
		httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "failed to record payment", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
}
