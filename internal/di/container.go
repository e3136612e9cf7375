package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/party-rentals/api/internal/platform/config"
	"github.com/party-rentals/api/internal/repositories"
	"github.com/party-rentals/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders   services.OrderService
	Coupons  services.CouponService
	Catalog  services.CatalogService
	Pricing  services.PricingConfigService
	Checkout services.CheckoutService
	System   services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises optional collaborators that live outside the repository
// registry, such as the payment gateway and async publishers.
type Option func(*containerConfig)

type containerConfig struct {
	payments  services.PaymentIntentCreator
	events    services.OrderEventPublisher
	notifier  services.PaymentNotifier
	buildInfo services.BuildInfo
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// WithPaymentProvider enables the checkout service backed by the given gateway.
func WithPaymentProvider(provider services.PaymentIntentCreator) Option {
	return func(cfg *containerConfig) {
		cfg.payments = provider
	}
}

// WithOrderEvents publishes order lifecycle events to the given publisher.
func WithOrderEvents(publisher services.OrderEventPublisher) Option {
	return func(cfg *containerConfig) {
		cfg.events = publisher
	}
}

// WithPaymentNotifier sends confirmation mail once an order is paid in full.
func WithPaymentNotifier(notifier services.PaymentNotifier) Option {
	return func(cfg *containerConfig) {
		cfg.notifier = notifier
	}
}

// WithBuildInfo stamps health responses with release metadata.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(cfg *containerConfig) {
		cfg.buildInfo = info
	}
}

// WithServiceLogger forwards service-level diagnostics to the given sink.
func WithServiceLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// NewContainer constructs the runtime dependencies. Production wiring supplies the
// Firestore-backed registry, while tests can provide in-memory fakes.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	var cc containerConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cc)
		}
	}

	svc, err := buildServices(reg, cfg, cc)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, cc containerConfig) (Services, error) {
	var svc Services

	if couponRepo := reg.Coupons(); couponRepo != nil {
		couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
			Coupons: couponRepo,
			Clock:   time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build coupon service: %w", err)
		}
		svc.Coupons = couponSvc
	}

	productRepo := reg.Products()
	if productRepo != nil && reg.Categories() != nil {
		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Products:   productRepo,
			Categories: reg.Categories(),
			Attributes: reg.Attributes(),
			Clock:      time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc
	}

	if configRepo := reg.PricingConfigs(); configRepo != nil {
		pricingSvc, err := services.NewPricingConfigService(services.PricingConfigServiceDeps{
			Configs: configRepo,
			Clock:   time.Now,
			Logger:  cc.logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build pricing config service: %w", err)
		}
		svc.Pricing = pricingSvc
	}

	counterRepo := reg.Counters()
	if ordersRepo := reg.Orders(); ordersRepo != nil && counterRepo != nil {
		orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
			Orders:   ordersRepo,
			Products: productRepo,
			Counters: counterRepo,
			Clock:    time.Now,
			Events:   cc.events,
			Notifier: cc.notifier,
			Logger:   cc.logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Counters:         counterRepo,
			Clock:            time.Now,
			Build:            cc.buildInfo,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	if cc.payments != nil {
		checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
			Payments: cc.payments,
			Clock:    time.Now,
			Logger:   cc.logger,
			Currency: cfg.Stripe.Currency,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build checkout service: %w", err)
		}
		svc.Checkout = checkoutSvc
	}

	return svc, nil
}
