package di

import (
	"context"
	"testing"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/payments"
	"github.com/party-rentals/api/internal/platform/config"
	"github.com/party-rentals/api/internal/repositories"
	"github.com/party-rentals/api/internal/services"
)

type stubRegistry struct {
	coupons repositories.CouponRepository
	health  repositories.HealthRepository
	closed  bool
}

func (s *stubRegistry) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func (s *stubRegistry) Orders() repositories.OrderRepository                 { return nil }
func (s *stubRegistry) Products() repositories.ProductRepository             { return nil }
func (s *stubRegistry) Categories() repositories.CategoryRepository          { return nil }
func (s *stubRegistry) Attributes() repositories.AttributeRepository         { return nil }
func (s *stubRegistry) Coupons() repositories.CouponRepository               { return s.coupons }
func (s *stubRegistry) PricingConfigs() repositories.PricingConfigRepository { return nil }
func (s *stubRegistry) Counters() repositories.CounterRepository             { return nil }
func (s *stubRegistry) Health() repositories.HealthRepository                { return s.health }

var _ repositories.Registry = (*stubRegistry)(nil)

type stubCouponRepo struct{}

func (stubCouponRepo) Insert(context.Context, domain.Coupon) error { return nil }
func (stubCouponRepo) Update(context.Context, domain.Coupon) error { return nil }
func (stubCouponRepo) Delete(context.Context, string) error        { return nil }
func (stubCouponRepo) FindByID(context.Context, string) (domain.Coupon, error) {
	return domain.Coupon{}, nil
}
func (stubCouponRepo) FindActiveByCode(context.Context, string) (domain.Coupon, error) {
	return domain.Coupon{}, nil
}
func (stubCouponRepo) List(context.Context, domain.Pagination) (domain.CursorPage[domain.Coupon], error) {
	return domain.CursorPage[domain.Coupon]{}, nil
}

type stubHealthRepo struct{}

func (stubHealthRepo) Collect(context.Context) (domain.SystemHealthReport, error) {
	return domain.SystemHealthReport{Status: domain.HealthStatusOK}, nil
}

type stubIntentCreator struct{}

func (stubIntentCreator) CreateIntent(context.Context, payments.IntentRequest) (payments.IntentSession, error) {
	return payments.IntentSession{}, nil
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), config.Config{}, nil); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestNewContainerBuildsServicesFromRegistry(t *testing.T) {
	reg := &stubRegistry{coupons: stubCouponRepo{}, health: stubHealthRepo{}}

	container, err := NewContainer(context.Background(), config.Config{}, reg,
		WithPaymentProvider(stubIntentCreator{}),
		WithBuildInfo(services.BuildInfo{Version: "test"}),
	)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	if container.Services.Coupons == nil {
		t.Errorf("expected coupon service")
	}
	if container.Services.System == nil {
		t.Errorf("expected system service")
	}
	if container.Services.Checkout == nil {
		t.Errorf("expected checkout service")
	}
	if container.Services.Orders != nil {
		t.Errorf("order service should require order and counter repositories")
	}
	if container.Services.Catalog != nil {
		t.Errorf("catalog service should require product and category repositories")
	}

	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !reg.closed {
		t.Errorf("expected registry to be closed")
	}
}
