package repositories

import (
	"context"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Attributes() AttributeRepository
	Coupons() CouponRepository
	PricingConfigs() PricingConfigRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order aggregates and provides query helpers for admins.
type OrderRepository interface {
	// Insert persists a new order. When coupon is non-empty the coupon's
	// usage counter is incremented in the same transaction, failing with a
	// conflict error when the usage limit is already exhausted.
	Insert(ctx context.Context, order domain.Order, couponCode string) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	Delete(ctx context.Context, orderID string) error

	// ApplyTransition writes the new status and history entry together with
	// the inventory adjustments in one transaction. Adjustments that would
	// drive any availability count negative, or collide with already blocked
	// rental dates, fail the whole call and leave every document untouched.
	ApplyTransition(ctx context.Context, cmd OrderTransitionWrite) (domain.Order, error)
}

// StockAdjustment describes one product's inventory delta for a transition.
type StockAdjustment struct {
	ProductID   string
	ProductName string
	Quantity    int
	// BlockDates and ReleaseDates carry yyyy-mm-dd rental days to reserve or
	// free alongside the count change. Empty for purchase items.
	BlockDates   []string
	ReleaseDates []string
}

// OrderTransitionWrite is the transactional payload for a status change.
// ExpectedStatus pins the status observed when the transition was planned;
// the write fails with a conflict when another writer got there first.
type OrderTransitionWrite struct {
	OrderID        string
	ExpectedStatus domain.OrderStatus
	NewStatus      domain.OrderStatus
	Note           string
	Now            time.Time
	Decrements     []StockAdjustment
	Increments     []StockAdjustment
}

// InsufficientStockError reports the first product that blocked a transition.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return "insufficient stock for product " + name
}

// DateConflictError reports a rental day already committed to another order.
type DateConflictError struct {
	ProductID   string
	ProductName string
	Date        string
}

// Error implements the error interface.
func (e *DateConflictError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return "date " + e.Date + " unavailable for product " + name
}

// ProductNotFoundError reports an order line item whose catalog product no
// longer exists, for example a product deleted between order placement and
// confirmation.
type ProductNotFoundError struct {
	ProductID   string
	ProductName string
}

// Error implements the error interface.
func (e *ProductNotFoundError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return "product not found: " + name
}

// CouponNotFoundError reports an order referencing a coupon code with no
// active coupon behind it.
type CouponNotFoundError struct {
	Code string
}

// Error implements the error interface.
func (e *CouponNotFoundError) Error() string {
	return "coupon " + e.Code + " not found or inactive"
}

// ProductRepository persists catalog entries.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// CategoryRepository persists catalog categories with unique names.
type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) error
	Update(ctx context.Context, category domain.Category) error
	Delete(ctx context.Context, categoryID string) error
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
	FindByName(ctx context.Context, name string) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

// AttributeRepository persists attribute groups with unique slugs.
type AttributeRepository interface {
	Insert(ctx context.Context, attribute domain.Attribute) error
	Update(ctx context.Context, attribute domain.Attribute) error
	Delete(ctx context.Context, attributeID string) error
	FindByID(ctx context.Context, attributeID string) (domain.Attribute, error)
	List(ctx context.Context) ([]domain.Attribute, error)
}

// CouponRepository maintains coupon definitions and usage counters.
type CouponRepository interface {
	Insert(ctx context.Context, coupon domain.Coupon) error
	Update(ctx context.Context, coupon domain.Coupon) error
	Delete(ctx context.Context, couponID string) error
	FindByID(ctx context.Context, couponID string) (domain.Coupon, error)
	// FindActiveByCode resolves an active coupon by its uppercased code.
	FindActiveByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error)
}

// PricingConfigRepository stores the three singleton pricing documents under
// fixed well-known keys so concurrent reads can never create duplicates.
// Ensure* transactionally creates the supplied defaults when the document is
// absent and returns whatever is stored afterwards; concurrent callers all
// observe the same single document.
type PricingConfigRepository interface {
	EnsureShelving(ctx context.Context, defaults domain.ShelvingConfig) (domain.ShelvingConfig, error)
	SaveShelving(ctx context.Context, cfg domain.ShelvingConfig) (domain.ShelvingConfig, error)

	EnsureShipping(ctx context.Context, defaults domain.ShippingConfig) (domain.ShippingConfig, error)
	SaveShipping(ctx context.Context, cfg domain.ShippingConfig) (domain.ShippingConfig, error)

	EnsureSignage(ctx context.Context, defaults domain.SignageConfig) (domain.SignageConfig, error)
	SaveSignage(ctx context.Context, cfg domain.SignageConfig) (domain.SignageConfig, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type OrderListFilter struct {
	Status        []string
	PaymentStatus []string
	DateRange     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

type ProductListFilter struct {
	CategoryID  *string
	ProductType *string
	ActiveOnly  bool
	Pagination  domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
