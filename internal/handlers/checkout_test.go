package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/services"
)

type stubCheckoutService struct {
	createIntentFunc func(ctx context.Context, cmd services.CreateIntentCommand) (services.PaymentIntent, error)
}

func (s *stubCheckoutService) CreateIntent(ctx context.Context, cmd services.CreateIntentCommand) (services.PaymentIntent, error) {
	if s.createIntentFunc == nil {
		return services.PaymentIntent{}, nil
	}
	return s.createIntentFunc(ctx, cmd)
}

var _ services.CheckoutService = (*stubCheckoutService)(nil)

func TestCheckoutHandlersCreateIntentSuccess(t *testing.T) {
	router := newTestRouter()
	var captured services.CreateIntentCommand
	service := &stubCheckoutService{
		createIntentFunc: func(ctx context.Context, cmd services.CreateIntentCommand) (services.PaymentIntent, error) {
			captured = cmd
			return services.PaymentIntent{
				IntentID:     "pi_123",
				ClientSecret: "pi_123_secret",
				Amount:       16600,
				Currency:     "usd",
			}, nil
		},
	}
	NewCheckoutHandlers(service, nil).Routes(router)

	payload := `{"items":[{"name":"Party Tent","line_total":150}],"extra_fees":10,"payment_type":"full","order_id":"ord_1"}`
	req := httptest.NewRequest(http.MethodPost, "/intent", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.PaymentType != domain.PaymentTypeFull {
		t.Fatalf("expected payment type normalised to FULL, got %q", captured.PaymentType)
	}
	if captured.OrderID != "ord_1" {
		t.Fatalf("expected order id forwarded, got %q", captured.OrderID)
	}
	if len(captured.Items) != 1 || captured.Items[0].LineTotal != 150 {
		t.Fatalf("expected line items forwarded, got %#v", captured.Items)
	}

	var resp createIntentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ClientSecret != "pi_123_secret" || resp.Amount != 16600 {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestCheckoutHandlersCreateIntentInvalidInput(t *testing.T) {
	router := newTestRouter()
	service := &stubCheckoutService{
		createIntentFunc: func(context.Context, services.CreateIntentCommand) (services.PaymentIntent, error) {
			return services.PaymentIntent{}, services.ErrCheckoutInvalidInput
		},
	}
	NewCheckoutHandlers(service, nil).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/intent", bytes.NewBufferString(`{"items":[]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCheckoutHandlersCreateIntentGatewayFailure(t *testing.T) {
	router := newTestRouter()
	service := &stubCheckoutService{
		createIntentFunc: func(context.Context, services.CreateIntentCommand) (services.PaymentIntent, error) {
			return services.PaymentIntent{}, services.ErrCheckoutPaymentFailed
		},
	}
	NewCheckoutHandlers(service, nil).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/intent", bytes.NewBufferString(`{"items":[{"name":"Tent","line_total":100}]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rr.Code)
	}
	var errResp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp["error"] != "payment_failed" {
		t.Fatalf("expected error code payment_failed, got %#v", errResp["error"])
	}
}

func TestCheckoutHandlersCreateIntentRateLimited(t *testing.T) {
	router := newTestRouter()
	clock := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(1, time.Minute, func() time.Time { return clock })
	service := &stubCheckoutService{
		createIntentFunc: func(context.Context, services.CreateIntentCommand) (services.PaymentIntent, error) {
			return services.PaymentIntent{IntentID: "pi_123"}, nil
		},
	}
	NewCheckoutHandlers(service, limiter).Routes(router)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/intent", bytes.NewBufferString(`{"items":[{"name":"Tent","line_total":100}]}`))
		req.RemoteAddr = "203.0.113.9:4321"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rr.Code)
		}
	}
}
