package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
	"github.com/party-rentals/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract used by the dependency container.
type Registry struct {
	provider   *pfirestore.Provider
	orders     *OrderRepository
	products   *ProductRepository
	categories *CategoryRepository
	attributes *AttributeRepository
	coupons    *CouponRepository
	configs    *PricingConfigRepository
	counters   *CounterRepository
	health     repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every Firestore repository against the shared provider.
// The health repository is supplied by the caller because dependency checks
// reach beyond Firestore.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build order repository: %w", err)
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build product repository: %w", err)
	}
	categories, err := NewCategoryRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build category repository: %w", err)
	}
	attributes, err := NewAttributeRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build attribute repository: %w", err)
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build coupon repository: %w", err)
	}
	configs, err := NewPricingConfigRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build pricing config repository: %w", err)
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build counter repository: %w", err)
	}

	return &Registry{
		provider:   provider,
		orders:     orders,
		products:   products,
		categories: categories,
		attributes: attributes,
		coupons:    coupons,
		configs:    configs,
		counters:   counters,
		health:     health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository {
	if r == nil || r.orders == nil {
		return nil
	}
	return r.orders
}

func (r *Registry) Products() repositories.ProductRepository {
	if r == nil || r.products == nil {
		return nil
	}
	return r.products
}

func (r *Registry) Categories() repositories.CategoryRepository {
	if r == nil || r.categories == nil {
		return nil
	}
	return r.categories
}

func (r *Registry) Attributes() repositories.AttributeRepository {
	if r == nil || r.attributes == nil {
		return nil
	}
	return r.attributes
}

func (r *Registry) Coupons() repositories.CouponRepository {
	if r == nil || r.coupons == nil {
		return nil
	}
	return r.coupons
}

func (r *Registry) PricingConfigs() repositories.PricingConfigRepository {
	if r == nil || r.configs == nil {
		return nil
	}
	return r.configs
}

func (r *Registry) Counters() repositories.CounterRepository {
	if r == nil || r.counters == nil {
		return nil
	}
	return r.counters
}

func (r *Registry) Health() repositories.HealthRepository {
	if r == nil {
		return nil
	}
	return r.health
}
