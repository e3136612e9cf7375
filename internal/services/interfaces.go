package services

import (
	"context"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderCustomer      = domain.OrderCustomer
	OrderPricing       = domain.OrderPricing
	OrderCoupon        = domain.OrderCoupon
	OrderStatus        = domain.OrderStatus
	PaymentStatus      = domain.PaymentStatus
	PaymentType        = domain.PaymentType
	StatusHistoryEntry = domain.StatusHistoryEntry
	ItemAddon          = domain.ItemAddon
	SignageData        = domain.SignageData
	ShelvingSelection  = domain.ShelvingSelection
	Coupon             = domain.Coupon
	CouponValidation   = domain.CouponValidation
	Product            = domain.Product
	Category           = domain.Category
	Attribute          = domain.Attribute
	AttributeOption    = domain.AttributeOption
	AttributeType      = domain.AttributeType
	ShelvingConfig     = domain.ShelvingConfig
	ShelvingSize       = domain.ShelvingSize
	ShelvingTier       = domain.ShelvingTier
	ShippingConfig     = domain.ShippingConfig
	ShippingRange      = domain.ShippingRange
	Warehouse          = domain.Warehouse
	SignageConfig      = domain.SignageConfig
	SignageSize        = domain.SignageSize
	PaymentIntent      = domain.PaymentIntent
	SystemHealthReport = domain.SystemHealthReport
	MailMessage        = domain.MailMessage
)

// CouponService validates coupon codes against cart subtotals and exposes the
// admin lifecycle for coupon records.
type CouponService interface {
	Validate(ctx context.Context, code string, cartSubtotal float64) (CouponValidation, error)
	CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error)
	UpdateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error)
	SetCouponActive(ctx context.Context, couponID string, active bool) (Coupon, error)
	GetCoupon(ctx context.Context, couponID string) (Coupon, error)
	ListCoupons(ctx context.Context, pager Pagination) (domain.CursorPage[Coupon], error)
	DeleteCoupon(ctx context.Context, couponID string) error
}

// OrderService encapsulates checkout, the status state machine with its
// inventory side effects, payment recording, and admin reads.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	Transition(ctx context.Context, cmd OrderTransitionCommand) (Order, error)
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (Order, error)
	Delete(ctx context.Context, orderID string) error
}

// PricingConfigService serves the three singleton pricing documents and their
// tier/range/size point operations.
type PricingConfigService interface {
	GetShelvingConfig(ctx context.Context) (ShelvingConfig, error)
	AddShelvingTierASize(ctx context.Context, cmd ShelvingSizeCommand) (ShelvingConfig, error)
	UpdateShelvingTierASize(ctx context.Context, cmd ShelvingSizeCommand) (ShelvingConfig, error)
	RemoveShelvingTierASize(ctx context.Context, sizeID string) (ShelvingConfig, error)
	UpdateShelvingTierB(ctx context.Context, cmd ShelvingTierCommand) (ShelvingConfig, error)
	UpdateShelvingTierC(ctx context.Context, cmd ShelvingTierCommand) (ShelvingConfig, error)

	GetShippingConfig(ctx context.Context) (ShippingConfig, error)
	AddShippingRange(ctx context.Context, cmd ShippingRangeCommand) (ShippingConfig, error)
	UpdateShippingRange(ctx context.Context, cmd ShippingRangeCommand) (ShippingConfig, error)
	RemoveShippingRange(ctx context.Context, rangeID string) (ShippingConfig, error)
	UpdateWarehouse(ctx context.Context, cmd WarehouseCommand) (ShippingConfig, error)
	MigrateShippingRanges(ctx context.Context) (int, error)

	GetSignageConfig(ctx context.Context) (SignageConfig, error)
	AddSignageSize(ctx context.Context, cmd SignageSizeCommand) (SignageConfig, error)
	UpdateSignageSize(ctx context.Context, cmd SignageSizeCommand) (SignageConfig, error)
	RemoveSignageSize(ctx context.Context, sizeID string) (SignageConfig, error)
	UpdateSignageBase(ctx context.Context, cmd SignageBaseCommand) (SignageConfig, error)
}

// CatalogService manages products and categories for public reads and admin writes.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	CreateCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error)
	UpdateCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	ListCategories(ctx context.Context) ([]Category, error)
	CreateAttribute(ctx context.Context, cmd CreateAttributeCommand) (Attribute, error)
	DeleteAttribute(ctx context.Context, attributeID string) error
	ListAttributes(ctx context.Context) ([]Attribute, error)
	AddAttributeOption(ctx context.Context, cmd AddAttributeOptionCommand) (Attribute, error)
	RemoveAttributeOption(ctx context.Context, attributeID, optionID string) (Attribute, error)
}

// CheckoutService prices the cart server-side and opens payment intents.
type CheckoutService interface {
	CreateIntent(ctx context.Context, cmd CreateIntentCommand) (PaymentIntent, error)
}

// SystemService aggregates utility endpoints (health checks, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	NextCounterValue(ctx context.Context, cmd CounterCommand) (int64, error)
}

// Mailer dispatches transactional email jobs. Delivery is asynchronous and
// best-effort; callers log failures and move on.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// Command and DTO definitions ------------------------------------------------

type OrderListFilter = repositories.OrderListFilter

type ProductListFilter = repositories.ProductListFilter

type UpsertCouponCommand struct {
	Coupon  Coupon
	ActorID string
}

type CreateOrderCommand struct {
	Customer    OrderCustomer
	Items       []OrderItem
	Pricing     OrderPricing
	CouponCode  string
	PaymentType PaymentType
	PaymentRef  string
	AmountPaid  float64
	Notes       string
}

type OrderTransitionCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	Note         string
	ActorID      string
}

// RecordPaymentCommand carries the gateway callback payload. AmountReceived is
// in the smallest currency unit, as delivered by the gateway.
type RecordPaymentCommand struct {
	OrderID        string
	IntentID       string
	AmountReceived int64
}

type ShelvingSizeCommand struct {
	SizeID     string
	Size       string
	Dimensions string
	Price      float64
}

type ShelvingTierCommand struct {
	Dimensions  string
	Price       float64
	MaxQuantity *int
}

type ShippingRangeCommand struct {
	RangeID     string
	MinDistance float64
	MaxDistance *float64
	Label       string
	Price       float64
}

type WarehouseCommand struct {
	Address   string
	Latitude  float64
	Longitude float64
}

type SignageSizeCommand struct {
	SizeID   string
	Key      string
	Label    string
	FontSize int
	Price    float64
}

type SignageBaseCommand struct {
	WidthFt   float64
	HeightFt  float64
	BasePrice float64
}

type UpsertProductCommand struct {
	Product Product
	ActorID string
}

type UpsertCategoryCommand struct {
	Category Category
	ActorID  string
}

type CreateAttributeCommand struct {
	Name     string
	Type     AttributeType
	Required bool
	ActorID  string
}

type AddAttributeOptionCommand struct {
	AttributeID string
	Label       string
	Hex         string
	PriceDelta  float64
	Tier        string
	SortOrder   int
	ActorID     string
}

// CreateIntentCommand feeds server-side amount calculation; line totals come
// from the cart snapshot, never from a client-provided grand total.
type CreateIntentCommand struct {
	Items       []IntentLineItem
	ExtraFees   float64
	PaymentType PaymentType
	OrderID     string
}

type IntentLineItem struct {
	Name      string
	LineTotal float64
}

type CounterCommand struct {
	CounterID string
	Step      int64
}
