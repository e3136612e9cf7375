package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/payments"
)

// Server-side amount calculation mirrors the storefront quote: labor is billed
// as a share of the item subtotal and the promotional discount comes off the
// same base before extra fees land on top.
const (
	checkoutLaborRate      = 0.14
	checkoutDiscountRate   = 0.10
	checkoutPartialShare   = 0.60
	defaultIntentCurrency  = "usd"
	checkoutMetadataSource = "checkout"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutPaymentFailed indicates the gateway intent could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
)

// PaymentIntentCreator abstracts payments.Provider so the gateway can be
// swapped in tests and alternative providers can be wired later.
type PaymentIntentCreator interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.IntentSession, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Payments PaymentIntentCreator
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
	Currency string
}

type checkoutService struct {
	payments PaymentIntentCreator
	now      func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
	currency string
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultIntentCurrency
	}

	return &checkoutService{
		payments: deps.Payments,
		now: func() time.Time {
			return clock().UTC()
		},
		logger:   logger,
		currency: currency,
	}, nil
}

// CreateIntent prices the cart server-side and opens a gateway payment intent.
// Line totals come from the cart snapshot; client-provided grand totals are
// never trusted.
func (s *checkoutService) CreateIntent(ctx context.Context, cmd CreateIntentCommand) (PaymentIntent, error) {
	if s == nil || s.payments == nil {
		return PaymentIntent{}, ErrCheckoutUnavailable
	}

	if len(cmd.Items) == 0 {
		return PaymentIntent{}, fmt.Errorf("%w: cart items are required", ErrCheckoutInvalidInput)
	}

	paymentType := cmd.PaymentType
	if paymentType == "" {
		paymentType = domain.PaymentTypeFull
	}
	switch paymentType {
	case domain.PaymentTypeFull, domain.PaymentTypePartial60:
	default:
		return PaymentIntent{}, fmt.Errorf("%w: unknown payment type %q", ErrCheckoutInvalidInput, cmd.PaymentType)
	}
	if cmd.ExtraFees < 0 {
		return PaymentIntent{}, fmt.Errorf("%w: extra fees must not be negative", ErrCheckoutInvalidInput)
	}

	amount := calculateOrderAmount(cmd.Items, cmd.ExtraFees, paymentType)
	if amount <= 0 {
		return PaymentIntent{}, fmt.Errorf("%w: order amount must be positive", ErrCheckoutInvalidInput)
	}

	metadata := map[string]string{
		"source":      checkoutMetadataSource,
		"paymentMode": string(paymentType),
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID != "" {
		metadata["orderId"] = orderID
	}

	session, err := s.payments.CreateIntent(ctx, payments.IntentRequest{
		Amount:         amount,
		Currency:       s.currency,
		Metadata:       metadata,
		IdempotencyKey: s.intentIdempotencyKey(cmd, amount),
	})
	if err != nil {
		s.logger(ctx, "checkout.intent_failed", map[string]any{
			"orderId": orderID,
			"amount":  amount,
			"error":   err.Error(),
		})
		return PaymentIntent{}, ErrCheckoutPaymentFailed
	}

	return PaymentIntent{
		IntentID:     session.IntentID,
		ClientSecret: session.ClientSecret,
		Amount:       session.Amount,
		Currency:     session.Currency,
	}, nil
}

// calculateOrderAmount returns the payable amount in the smallest currency
// unit. Partial payments collect a fixed share of the grand total up front;
// the balance is settled on delivery.
func calculateOrderAmount(items []IntentLineItem, extraFees float64, paymentType PaymentType) int64 {
	var subtotal float64
	for _, item := range items {
		if item.LineTotal <= 0 {
			continue
		}
		subtotal += item.LineTotal
	}

	laborCharge := subtotal * checkoutLaborRate
	discount := subtotal * checkoutDiscountRate
	grandTotal := subtotal - discount + laborCharge + extraFees

	payable := grandTotal
	if paymentType == domain.PaymentTypePartial60 {
		payable = grandTotal * checkoutPartialShare
	}

	return int64(math.Round(payable * 100))
}

// intentIdempotencyKey pins retried intent requests for the same cart snapshot
// to a single gateway intent.
func (s *checkoutService) intentIdempotencyKey(cmd CreateIntentCommand, amount int64) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(cmd.OrderID))
	b.WriteString("|")
	b.WriteString(string(cmd.PaymentType))
	fmt.Fprintf(&b, "|%d", amount)
	for _, item := range cmd.Items {
		fmt.Fprintf(&b, "|%s:%.2f", strings.TrimSpace(item.Name), item.LineTotal)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
