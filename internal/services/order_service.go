package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/repositories"
)

const (
	orderEventCreated         = "order.created"
	orderEventStatusChanged   = "order.status.changed"
	orderEventPaymentRecorded = "order.payment.recorded"

	orderIDPrefix        = "ord_"
	orderNumberCounterID = "orders"

	// minimumOrderTotal is the storefront's order floor in dollars.
	minimumOrderTotal = 1000
)

// orderStateTransitions is the only source of truth for allowed status moves.
// Terminal states have no exits.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusDispatched, domain.OrderStatusCompleted, domain.OrderStatusCancelled},
	domain.OrderStatusDispatched: {domain.OrderStatusCompleted},
	domain.OrderStatusCompleted:  {},
	domain.OrderStatusCancelled:  {},
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	PreviousStatus string
	CurrentStatus  string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// PaymentNotifier sends payment confirmation emails. Implementations are
// best-effort; the caller logs failures and never fails the payment for them.
type PaymentNotifier interface {
	PaymentConfirmed(ctx context.Context, order Order) error
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Counters    repositories.CounterRepository
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Notifier    PaymentNotifier
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	counters  repositories.CounterRepository
	clock     func() time.Time
	newID     func() string
	events    OrderEventPublisher
	notifier  PaymentNotifier
	logger    func(context.Context, string, map[string]any)
	sanitizer *bluemonday.Policy
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, ErrOrderRepositoryMissing
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		products: deps.Products,
		counters: deps.Counters,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		events:    deps.Events,
		notifier:  deps.Notifier,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderRepositoryMissing
	}

	customer := trimCustomer(cmd.Customer)
	if customer.Name == "" {
		return Order{}, fmt.Errorf("%w: customer name is required", ErrOrderInvalidInput)
	}
	if customer.Email == "" {
		return Order{}, fmt.Errorf("%w: customer email is required", ErrOrderInvalidInput)
	}
	if customer.AddressLine == "" {
		return Order{}, fmt.Errorf("%w: customer address is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	if cmd.Pricing.Total <= 0 {
		return Order{}, fmt.Errorf("%w: order total must be positive", ErrOrderInvalidInput)
	}
	if cmd.Pricing.Total < minimumOrderTotal {
		return Order{}, fmt.Errorf("%w: minimum order amount is $%d", ErrOrderInvalidInput, minimumOrderTotal)
	}

	paymentType := cmd.PaymentType
	if paymentType == "" {
		paymentType = domain.PaymentTypeFull
	}
	switch paymentType {
	case domain.PaymentTypeFull, domain.PaymentTypePartial60:
	default:
		return Order{}, fmt.Errorf("%w: unknown payment type %q", ErrOrderInvalidInput, paymentType)
	}

	now := s.now()

	items := make([]domain.OrderItem, 0, len(cmd.Items))
	for i, item := range cmd.Items {
		normalized, err := s.normalizeItem(ctx, item)
		if err != nil {
			return Order{}, fmt.Errorf("%w: item %d: %v", ErrOrderInvalidInput, i, err)
		}
		items = append(items, normalized)
	}

	order := Order{
		ID:            orderIDPrefix + s.newID(),
		Customer:      customer,
		Items:         items,
		Pricing:       cmd.Pricing,
		PaymentType:   paymentType,
		PaymentRef:    strings.TrimSpace(cmd.PaymentRef),
		AmountPaid:    cmd.AmountPaid,
		Status:        domain.OrderStatusPending,
		Notes:         s.sanitizeText(cmd.Notes),
		StatusHistory: []StatusHistoryEntry{{Status: domain.OrderStatusPending, At: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	order.PaymentStatus = domain.PaymentStatusPending
	order.AmountDue = order.Pricing.Total - order.AmountPaid
	if order.AmountDue < 0 {
		order.AmountDue = 0
	}
	if paymentType == domain.PaymentTypeFull && order.AmountPaid >= order.Pricing.Total {
		order.PaymentStatus = domain.PaymentStatusPaid
		order.AmountDue = 0
	}

	couponCode := strings.ToUpper(strings.TrimSpace(cmd.CouponCode))
	if couponCode != "" {
		order.Coupon = &domain.OrderCoupon{
			Code:     couponCode,
			Discount: cmd.Pricing.Discount,
		}
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return Order{}, err
	}
	order.OrderNumber = number

	if err := s.orders.Insert(ctx, order, couponCode); err != nil {
		var couponErr *repositories.CouponNotFoundError
		if errors.As(err, &couponErr) {
			return Order{}, rejectCoupon("coupon code %q is not valid", couponErr.Code)
		}
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		OccurredAt:    now,
	})

	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderRepositoryMissing
	}
	if strings.TrimSpace(orderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	if s == nil || s.orders == nil {
		return domain.CursorPage[Order]{}, ErrOrderRepositoryMissing
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// Transition applies one move of the status state machine together with its
// inventory effects. Confirming reserves stock and rental dates for every
// line item atomically; leaving confirmed for completed or cancelled returns
// them exactly once.
func (s *orderService) Transition(ctx context.Context, cmd OrderTransitionCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderRepositoryMissing
	}

	target := cmd.TargetStatus
	if _, recognized := orderStateTransitions[target]; !recognized {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, target)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if !transitionAllowed(order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, order.Status, target)
	}

	write := repositories.OrderTransitionWrite{
		OrderID:        order.ID,
		ExpectedStatus: order.Status,
		NewStatus:      target,
		Note:           s.sanitizeText(cmd.Note),
		Now:            s.now(),
	}

	switch {
	case target == domain.OrderStatusConfirmed:
		write.Decrements = stockAdjustments(order.Items, true)
	case order.Status == domain.OrderStatusConfirmed &&
		(target == domain.OrderStatusCompleted || target == domain.OrderStatusCancelled):
		write.Increments = stockAdjustments(order.Items, false)
	}

	updated, err := s.orders.ApplyTransition(ctx, write)
	if err != nil {
		var stockErr *repositories.InsufficientStockError
		var dateErr *repositories.DateConflictError
		var productErr *repositories.ProductNotFoundError
		if errors.As(err, &stockErr) || errors.As(err, &dateErr) || errors.As(err, &productErr) {
			return Order{}, err
		}
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		PreviousStatus: string(order.Status),
		CurrentStatus:  string(updated.Status),
		OccurredAt:     write.Now,
	})

	return updated, nil
}

// RecordPayment applies a gateway success callback. Already-paid orders are a
// no-op so webhook redeliveries cannot double-count.
func (s *orderService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderRepositoryMissing
	}
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, nil
	}

	now := s.now()
	order.PaymentStatus = domain.PaymentStatusPaid
	order.PaymentRef = strings.TrimSpace(cmd.IntentID)
	order.AmountPaid += float64(cmd.AmountReceived) / 100
	order.AmountDue = order.Pricing.Total - order.AmountPaid
	if order.AmountDue < 0 {
		order.AmountDue = 0
	}
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventPaymentRecorded,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		OccurredAt:    now,
		Metadata: map[string]any{
			"amountPaid": order.AmountPaid,
			"intentId":   order.PaymentRef,
		},
	})

	if s.notifier != nil {
		if err := s.notifier.PaymentConfirmed(ctx, order); err != nil {
			s.logger(ctx, "order.payment.mail.failed", map[string]any{
				"order": order.ID,
				"error": err.Error(),
			})
		}
	}

	return order, nil
}

func (s *orderService) Delete(ctx context.Context, orderID string) error {
	if s == nil || s.orders == nil {
		return ErrOrderRepositoryMissing
	}
	if strings.TrimSpace(orderID) == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// normalizeItem copies the inbound item into its immutable snapshot shape.
// Signage items without a resolvable catalog product stand alone with a nil
// product reference.
func (s *orderService) normalizeItem(ctx context.Context, item OrderItem) (OrderItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return OrderItem{}, errors.New("name is required")
	}
	if item.Quantity < 1 {
		return OrderItem{}, errors.New("quantity must be at least 1")
	}
	switch item.ProductType {
	case domain.ProductTypeRental, domain.ProductTypePurchase:
	default:
		return OrderItem{}, fmt.Errorf("unknown product type %q", item.ProductType)
	}
	if item.ProductType == domain.ProductTypeRental {
		if item.StartDate == nil || item.EndDate == nil {
			return OrderItem{}, errors.New("rental items require start and end dates")
		}
		if item.EndDate.Before(*item.StartDate) {
			return OrderItem{}, errors.New("rental end date precedes start date")
		}
	}

	item.CustomTitle = s.sanitizeText(item.CustomTitle)
	if item.Signage != nil {
		signage := *item.Signage
		signage.Texts = s.sanitizeTexts(signage.Texts)
		item.Signage = &signage
	}
	if len(item.Addons) > 0 {
		addons := make([]ItemAddon, len(item.Addons))
		copy(addons, item.Addons)
		for i := range addons {
			addons[i].SignageText = s.sanitizeText(addons[i].SignageText)
		}
		item.Addons = addons
	}

	if item.ProductID != nil {
		id := strings.TrimSpace(*item.ProductID)
		if id == "" {
			item.ProductID = nil
		} else if item.Signage != nil && s.products != nil {
			if _, err := s.products.FindByID(ctx, id); err != nil {
				var repoErr repositories.RepositoryError
				if errors.As(err, &repoErr) && repoErr.IsNotFound() {
					item.ProductID = nil
				} else {
					return OrderItem{}, err
				}
			} else {
				item.ProductID = &id
			}
		} else {
			item.ProductID = &id
		}
	}

	return item, nil
}

func (s *orderService) sanitizeText(raw string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(raw))
}

func (s *orderService) sanitizeTexts(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, text := range in {
		out[i] = s.sanitizeText(text)
	}
	return out
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderNumberCounterID, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PR-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	for _, allowed := range orderStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// stockAdjustments maps order line items onto inventory deltas. Items without
// a product reference (standalone signage) have no inventory effect.
func stockAdjustments(items []domain.OrderItem, reserve bool) []repositories.StockAdjustment {
	adjustments := make([]repositories.StockAdjustment, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil || strings.TrimSpace(*item.ProductID) == "" {
			continue
		}
		adj := repositories.StockAdjustment{
			ProductID:   *item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
		}
		if item.ProductType == domain.ProductTypeRental {
			dates := rentalDates(item.StartDate, item.EndDate)
			if reserve {
				adj.BlockDates = dates
			} else {
				adj.ReleaseDates = dates
			}
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments
}

// rentalDates expands an inclusive date range into yyyy-mm-dd days.
func rentalDates(start, end *time.Time) []string {
	if start == nil || end == nil {
		return nil
	}
	first := start.UTC().Truncate(24 * time.Hour)
	last := end.UTC().Truncate(24 * time.Hour)
	if last.Before(first) {
		return nil
	}
	var dates []string
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day.Format("2006-01-02"))
	}
	return dates
}

func trimCustomer(c OrderCustomer) OrderCustomer {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.AddressLine = strings.TrimSpace(c.AddressLine)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.TrimSpace(c.State)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	return c
}
