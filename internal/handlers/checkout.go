package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/services"
)

const maxCheckoutBodySize = 64 * 1024

// CheckoutHandlers opens payment intents for the storefront. Amounts are
// always computed server-side from the submitted cart lines.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	limiter  rateLimiter
}

// NewCheckoutHandlers constructs a new CheckoutHandlers instance.
func NewCheckoutHandlers(checkout services.CheckoutService, limiter rateLimiter) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout, limiter: limiter}
}

// Routes registers the /checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/intent", h.createIntent)
}

type intentLineItemPayload struct {
	Name      string  `json:"name"`
	LineTotal float64 `json:"line_total"`
}

type createIntentRequest struct {
	Items       []intentLineItemPayload `json:"items"`
	ExtraFees   float64                 `json:"extra_fees"`
	PaymentType string                  `json:"payment_type"`
	OrderID     string                  `json:"order_id"`
}

type createIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (h *CheckoutHandlers) createIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts, try again later", http.StatusTooManyRequests))
		return
	}

	var req createIntentRequest
	if !decodeJSONBody(ctx, w, r, maxCheckoutBodySize, &req) {
		return
	}

	cmd := services.CreateIntentCommand{
		ExtraFees:   req.ExtraFees,
		PaymentType: services.PaymentType(strings.ToUpper(strings.TrimSpace(req.PaymentType))),
		OrderID:     strings.TrimSpace(req.OrderID),
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.IntentLineItem{
			Name:      strings.TrimSpace(item.Name),
			LineTotal: item.LineTotal,
		})
	}

	intent, err := h.checkout.CreateIntent(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, createIntentResponse{
		IntentID:     intent.IntentID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment gateway rejected the request", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to create payment intent", http.StatusInternalServerError))
	}
}
