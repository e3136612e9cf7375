package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery bounds a filter between optional endpoints. Nil means unbounded.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// ProductType distinguishes rental inventory from items sold outright.
type ProductType string

const (
	// ProductTypeRental marks products booked per date range and returned.
	ProductTypeRental ProductType = "rental"
	// ProductTypePurchase marks products sold permanently.
	ProductTypePurchase ProductType = "purchase"
)

// Product is a catalog entry. AvailabilityCount is the only field the order
// lifecycle mutates; everything else is read-only from its perspective.
type Product struct {
	ID                string
	Name              string
	Description       string
	ProductType       ProductType
	CategoryID        string
	Price             float64
	Images            []string
	Tags              []string
	AvailabilityCount int
	// BlockedDates holds yyyy-mm-dd keys for days already committed to
	// confirmed rentals.
	BlockedDates []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category groups catalog products. Names are unique.
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttributeType enumerates how an attribute group renders and prices.
type AttributeType string

const (
	// AttributeTypeSelect renders a single-choice picker.
	AttributeTypeSelect AttributeType = "select"
	// AttributeTypeMulti renders a multi-choice picker.
	AttributeTypeMulti AttributeType = "multi"
	// AttributeTypeColor renders swatches; options carry a hex value.
	AttributeTypeColor AttributeType = "color"
	// AttributeTypeAddon prices each option via PriceDelta.
	AttributeTypeAddon AttributeType = "addon"
)

// AttributeOption is one selectable entry inside an attribute group. Hex is
// only meaningful for color groups, PriceDelta and Tier only for addons.
type AttributeOption struct {
	ID         string
	Label      string
	Value      string
	Hex        string
	PriceDelta float64
	Tier       string
	IsActive   bool
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attribute is a named group of storefront options. Slugs are unique.
type Attribute struct {
	ID        string
	Name      string
	Slug      string
	Type      AttributeType
	Required  bool
	Options   []AttributeOption
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DiscountType enumerates coupon discount semantics.
type DiscountType string

const (
	// DiscountPercent applies discountValue as a percentage of the subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFlat subtracts discountValue verbatim.
	DiscountFlat DiscountType = "flat"
)

// Coupon is a promotional code. UsedCount only increases, and only
// transactionally with the order creation that references the code.
type Coupon struct {
	ID                string
	Code              string
	DiscountType      DiscountType
	DiscountValue     float64
	MaxDiscountAmount *float64
	MinCartValue      float64
	ExpiryDate        *time.Time
	UsageLimit        *int
	UsedCount         int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CouponValidation is the outcome of resolving a code against a cart subtotal.
type CouponValidation struct {
	Coupon   Coupon
	Discount float64
}

// ShelvingSelection snapshots a shelving addon choice on an order item.
type ShelvingSelection struct {
	Tier     string
	Size     string
	Quantity int
}

// ItemAddon snapshots one configured addon at order-creation time.
type ItemAddon struct {
	OptionID    string
	Name        string
	Price       float64
	SignageText string
	VinylColor  string
	VinylHex    string
	Shelving    *ShelvingSelection
}

// SignageData snapshots custom signage configuration on an item.
type SignageData struct {
	Texts      []string
	Background string
}

// OrderItem is an immutable snapshot of one line at order-creation time.
// Later catalog changes never alter it. ProductID is nil for standalone
// signage items with no catalog backing.
type OrderItem struct {
	ProductID   *string
	Name        string
	ProductType ProductType
	Quantity    int
	UnitPrice   float64
	LineTotal   float64
	Days        int
	StartDate   *time.Time
	EndDate     *time.Time
	Image       string
	Addons      []ItemAddon
	Signage     *SignageData
	CustomTitle string
}

// OrderCustomer holds the contact and delivery details captured at checkout.
type OrderCustomer struct {
	Name        string
	Email       string
	Phone       string
	AddressLine string
	City        string
	State       string
	PostalCode  string
}

// OrderPricing is the breakdown computed once at creation, never recomputed.
type OrderPricing struct {
	Subtotal    float64
	Discount    float64
	DeliveryFee float64
	Tax         float64
	Total       float64
}

// OrderCoupon is the denormalized coupon snapshot stored on the order.
type OrderCoupon struct {
	Code     string
	Discount float64
}

// PaymentStatus enumerates payment lifecycle states for an order.
type PaymentStatus string

const (
	// PaymentStatusPending indicates no successful payment recorded yet.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates the order is fully settled.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed indicates the gateway reported a failed attempt.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded indicates the payment was returned to the customer.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentType enumerates how much of the total is collected at checkout.
type PaymentType string

const (
	// PaymentTypeFull collects the entire total upfront.
	PaymentTypeFull PaymentType = "FULL"
	// PaymentTypePartial60 collects 60% upfront with the rest due on delivery.
	PaymentTypePartial60 PaymentType = "PARTIAL_60"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates a freshly created order awaiting review.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the order was accepted and stock reserved.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusDispatched indicates the order left the warehouse.
	OrderStatusDispatched OrderStatus = "dispatched"
	// OrderStatusCompleted indicates fulfilment finished and rentals returned.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// StatusHistoryEntry records one lifecycle change on an order.
type StatusHistoryEntry struct {
	Status OrderStatus
	At     time.Time
	Note   string
}

// Order is the aggregate root for a checkout.
type Order struct {
	ID            string
	OrderNumber   string
	Customer      OrderCustomer
	Items         []OrderItem
	Pricing       OrderPricing
	Coupon        *OrderCoupon
	PaymentStatus PaymentStatus
	PaymentType   PaymentType
	PaymentRef    string
	AmountPaid    float64
	AmountDue     float64
	Status        OrderStatus
	StatusHistory []StatusHistoryEntry
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentIntent is the gateway session handed back to the storefront.
type PaymentIntent struct {
	IntentID     string
	ClientSecret string
	Amount       int64
	Currency     string
}

// ShelvingSize is one size entry within shelving tier A.
type ShelvingSize struct {
	ID         string
	Size       string
	Dimensions string
	Price      float64
}

// ShelvingTier prices tier B or C as a single fixed option.
type ShelvingTier struct {
	Dimensions  string
	Price       float64
	MaxQuantity int
}

// ShelvingConfig is the singleton pricing table for shelving addons.
// Tier A offers multiple sizes; tiers B and C are single fixed options.
type ShelvingConfig struct {
	ID         string
	TierASizes []ShelvingSize
	TierB      ShelvingTier
	TierC      ShelvingTier
	IsActive   bool
	UpdatedAt  time.Time
}

// ShippingRange prices round-trip delivery for a distance bracket in miles.
// A nil MaxDistance means the bracket is open-ended.
type ShippingRange struct {
	ID          string
	MinDistance float64
	MaxDistance *float64
	Label       string
	Price       float64
}

// Warehouse is the dispatch origin used for distance calculations.
type Warehouse struct {
	Address   string
	Latitude  float64
	Longitude float64
}

// ShippingConfig is the singleton distance-based delivery pricing table.
type ShippingConfig struct {
	ID        string
	Ranges    []ShippingRange
	Warehouse Warehouse
	IsActive  bool
	UpdatedAt time.Time
}

// SignageSize is one selectable text size. FontSize is relative to the
// reference canvas height; the storefront scales it.
type SignageSize struct {
	ID       string
	Key      string
	Label    string
	FontSize int
	Price    float64
}

// SignageConfig is the singleton signage pricing table. Width and height are
// the physical background dimensions in feet.
type SignageConfig struct {
	ID        string
	WidthFt   float64
	HeightFt  float64
	Sizes     []SignageSize
	BasePrice float64
	IsActive  bool
	UpdatedAt time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck reports the probe result for a single dependency.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// MailMessage is a queued outbound email.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
}
