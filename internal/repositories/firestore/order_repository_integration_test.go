//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
	pconfig "github.com/party-rentals/api/internal/platform/config"
	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
	"github.com/party-rentals/api/internal/repositories"
)

func TestOrderRepositoryIntegration_CouponUsage(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "order-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	orders, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		t.Fatalf("new coupon repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC()
	limit := 1
	if err := coupons.Insert(ctx, domain.Coupon{
		ID:            "cpn_1",
		Code:          "SUMMER25",
		DiscountType:  domain.DiscountPercent,
		DiscountValue: 25,
		UsageLimit:    &limit,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("insert coupon: %v", err)
	}

	newOrder := func(id string) domain.Order {
		return domain.Order{
			ID:          id,
			OrderNumber: id,
			Customer: domain.OrderCustomer{
				Name:        "Riley Quinn",
				Email:       "riley@example.com",
				AddressLine: "10 Garland Way",
			},
			Items: []domain.OrderItem{{
				Name:        "Balloon Arch",
				ProductType: domain.ProductTypePurchase,
				Quantity:    2,
				UnitPrice:   600,
				LineTotal:   1200,
			}},
			Pricing:       domain.OrderPricing{Subtotal: 1200, Discount: 300, Total: 900},
			PaymentStatus: domain.PaymentStatusPending,
			PaymentType:   domain.PaymentTypeFull,
			AmountDue:     900,
			Status:        domain.OrderStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	// First checkout consumes the single use.
	if err := orders.Insert(ctx, newOrder("ord_1"), "summer25"); err != nil {
		t.Fatalf("insert first order: %v", err)
	}

	got, err := coupons.FindActiveByCode(ctx, "SUMMER25")
	if err != nil {
		t.Fatalf("find coupon: %v", err)
	}
	if got.UsedCount != 1 {
		t.Fatalf("expected usedCount 1, got %d", got.UsedCount)
	}

	// Second checkout must fail the limit check, and the order must not
	// be created: the increment and the order write share a transaction.
	err = orders.Insert(ctx, newOrder("ord_2"), "SUMMER25")
	if err == nil {
		t.Fatal("expected usage limit to reject second order")
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected repository error, got %T %v", err, err)
	}
	if _, err := orders.FindByID(ctx, "ord_2"); err == nil {
		t.Fatal("expected rejected order to be absent")
	}

	got, err = coupons.FindActiveByCode(ctx, "SUMMER25")
	if err != nil {
		t.Fatalf("re-find coupon: %v", err)
	}
	if got.UsedCount != 1 {
		t.Fatalf("expected usedCount to stay 1, got %d", got.UsedCount)
	}

	// An unknown code surfaces as a typed coupon error, not a generic
	// NotFound, so the checkout path can reject the coupon by name.
	err = orders.Insert(ctx, newOrder("ord_3"), "GHOST50")
	if err == nil {
		t.Fatal("expected unknown coupon to be rejected")
	}
	var couponErr *repositories.CouponNotFoundError
	if !errors.As(err, &couponErr) {
		t.Fatalf("expected coupon not found error, got %T %v", err, err)
	}
	if couponErr.Code != "GHOST50" {
		t.Fatalf("expected code GHOST50, got %s", couponErr.Code)
	}
	if _, err := orders.FindByID(ctx, "ord_3"); err == nil {
		t.Fatal("expected order with unknown coupon to be absent")
	}
}
