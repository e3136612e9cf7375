package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn     func(context.Context, domain.Order, string) error
	updateFn     func(context.Context, domain.Order) error
	findFn       func(context.Context, string) (domain.Order, error)
	listFn       func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	deleteFn     func(context.Context, string) error
	transitionFn func(context.Context, repositories.OrderTransitionWrite) (domain.Order, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order, couponCode string) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order, couponCode)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepo) Delete(ctx context.Context, orderID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, orderID)
	}
	return nil
}

func (s *stubOrderRepo) ApplyTransition(ctx context.Context, cmd repositories.OrderTransitionWrite) (domain.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubProductRepo struct {
	findFn   func(context.Context, string) (domain.Product, error)
	updateFn func(context.Context, domain.Product) error
}

func (s *stubProductRepo) Insert(context.Context, domain.Product) error { return nil }

func (s *stubProductRepo) Update(ctx context.Context, product domain.Product) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, product)
	}
	return nil
}

func (s *stubProductRepo) Delete(context.Context, string) error { return nil }

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{ID: productID}, nil
}

func (s *stubProductRepo) List(context.Context, repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	return domain.CursorPage[domain.Product]{}, errors.New("not implemented")
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 0, nil
}

func (s *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

type stubNotifier struct {
	orders []domain.Order
	err    error
}

func (s *stubNotifier) PaymentConfirmed(_ context.Context, order domain.Order) error {
	s.orders = append(s.orders, order)
	return s.err
}

func newTestOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{
			nextFn: func(context.Context, string, int64) (int64, error) { return 42, nil },
		}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time {
			return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
		}
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func validCreateCommand() CreateOrderCommand {
	productID := "prd_chairs"
	return CreateOrderCommand{
		Customer: OrderCustomer{
			Name:        "Dana Field",
			Email:       "dana@example.com",
			AddressLine: "12 Elm Street",
		},
		Items: []OrderItem{
			{
				ProductID:   &productID,
				Name:        "Folding Chair",
				ProductType: domain.ProductTypePurchase,
				Quantity:    2,
				UnitPrice:   600,
				LineTotal:   1200,
			},
		},
		Pricing: OrderPricing{Subtotal: 1200, DeliveryFee: 35, Total: 1235},
	}
}

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	var inserted domain.Order
	var insertedCoupon string
	events := &captureOrderEvents{}

	repo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order, couponCode string) error {
			inserted = order
			insertedCoupon = couponCode
			return nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: repo,
		Clock:  func() time.Time { return now },
		Events: events,
	})

	cmd := validCreateCommand()
	cmd.CouponCode = " save10 "
	cmd.Pricing.Discount = 10

	order, err := svc.Create(ctx, cmd)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status got %s", order.Status)
	}
	if order.OrderNumber != "PR-2026-000042" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if !strings.HasPrefix(order.ID, "ord_") {
		t.Fatalf("expected ord_ prefix got %s", order.ID)
	}
	if len(order.StatusHistory) != 1 || order.StatusHistory[0].Status != domain.OrderStatusPending {
		t.Fatalf("expected initial pending history entry, got %+v", order.StatusHistory)
	}
	if order.Coupon == nil || order.Coupon.Code != "SAVE10" || order.Coupon.Discount != 10 {
		t.Fatalf("coupon snapshot not taken: %+v", order.Coupon)
	}
	if insertedCoupon != "SAVE10" {
		t.Fatalf("repository not told to increment coupon usage, got %q", insertedCoupon)
	}
	if inserted.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected pending payment status got %s", inserted.PaymentStatus)
	}
	if inserted.AmountDue != 1235 {
		t.Fatalf("expected full amount due, got %v", inserted.AmountDue)
	}
	if len(events.events) != 1 || events.events[0].Type != "order.created" {
		t.Fatalf("expected order.created event, got %+v", events.events)
	}
}

func TestOrderService_Create_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestOrderService(t, OrderServiceDeps{Orders: &stubOrderRepo{}})

	cases := []struct {
		name   string
		mutate func(*CreateOrderCommand)
	}{
		{name: "missing name", mutate: func(c *CreateOrderCommand) { c.Customer.Name = " " }},
		{name: "missing email", mutate: func(c *CreateOrderCommand) { c.Customer.Email = "" }},
		{name: "missing address", mutate: func(c *CreateOrderCommand) { c.Customer.AddressLine = "" }},
		{name: "no items", mutate: func(c *CreateOrderCommand) { c.Items = nil }},
		{name: "zero total", mutate: func(c *CreateOrderCommand) { c.Pricing.Total = 0 }},
		{name: "below minimum total", mutate: func(c *CreateOrderCommand) { c.Pricing.Total = 999.99 }},
		{name: "bad payment type", mutate: func(c *CreateOrderCommand) { c.PaymentType = "LAYAWAY" }},
		{name: "zero quantity", mutate: func(c *CreateOrderCommand) { c.Items[0].Quantity = 0 }},
		{name: "bad product type", mutate: func(c *CreateOrderCommand) { c.Items[0].ProductType = "lease" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validCreateCommand()
			tc.mutate(&cmd)
			if _, err := svc.Create(ctx, cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected ErrOrderInvalidInput got %v", err)
			}
		})
	}
}

func TestOrderService_Create_FullPaymentMarksPaid(t *testing.T) {
	ctx := context.Background()
	var inserted domain.Order
	repo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order, _ string) error {
			inserted = order
			return nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	cmd := validCreateCommand()
	cmd.PaymentType = domain.PaymentTypeFull
	cmd.AmountPaid = 1235

	if _, err := svc.Create(ctx, cmd); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if inserted.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("full upfront payment should be paid, got %s", inserted.PaymentStatus)
	}
	if inserted.AmountDue != 0 {
		t.Fatalf("expected zero amount due, got %v", inserted.AmountDue)
	}
}

func TestOrderService_Create_SignageWithoutCatalogProduct(t *testing.T) {
	ctx := context.Background()
	var inserted domain.Order
	repo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order, _ string) error {
			inserted = order
			return nil
		},
	}
	products := &stubProductRepo{
		findFn: func(context.Context, string) (domain.Product, error) {
			return domain.Product{}, &stubRepoError{notFound: true}
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo, Products: products})

	ghost := "prd_deleted"
	cmd := validCreateCommand()
	cmd.Items[0].ProductID = &ghost
	cmd.Items[0].Signage = &domain.SignageData{
		Texts:      []string{"<script>alert(1)</script>Happy Birthday"},
		Background: "balloons",
	}

	if _, err := svc.Create(ctx, cmd); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if inserted.Items[0].ProductID != nil {
		t.Fatalf("signage item with dead catalog ref must store a nil product id")
	}
	if got := inserted.Items[0].Signage.Texts[0]; got != "Happy Birthday" {
		t.Fatalf("signage text not sanitized: %q", got)
	}
}

func TestOrderService_Create_SnapshotPreservesLineTotals(t *testing.T) {
	ctx := context.Background()
	var inserted domain.Order
	repo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order, _ string) error {
			inserted = order
			return nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	cmd := validCreateCommand()
	cmd.Items[0].UnitPrice = 10
	cmd.Items[0].LineTotal = 20

	if _, err := svc.Create(ctx, cmd); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if inserted.Items[0].LineTotal != 20 || inserted.Items[0].UnitPrice != 10 {
		t.Fatalf("line totals must be stored verbatim: %+v", inserted.Items[0])
	}
}

func TestOrderService_Transition_ConfirmReservesStock(t *testing.T) {
	ctx := context.Background()
	productID := "prd_tent"
	start := time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC)
	stored := domain.Order{
		ID:     "ord_1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{
				ProductID:   &productID,
				Name:        "Party Tent",
				ProductType: domain.ProductTypeRental,
				Quantity:    1,
				StartDate:   &start,
				EndDate:     &end,
			},
		},
	}

	var written repositories.OrderTransitionWrite
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return stored, nil },
		transitionFn: func(_ context.Context, cmd repositories.OrderTransitionWrite) (domain.Order, error) {
			written = cmd
			updated := stored
			updated.Status = cmd.NewStatus
			return updated, nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	updated, err := svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusConfirmed,
	})
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if updated.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed got %s", updated.Status)
	}
	if written.ExpectedStatus != domain.OrderStatusPending {
		t.Fatalf("expected status guard not set: %+v", written)
	}
	if len(written.Decrements) != 1 || written.Decrements[0].Quantity != 1 {
		t.Fatalf("expected one decrement, got %+v", written.Decrements)
	}
	wantDates := []string{"2026-06-05", "2026-06-06", "2026-06-07"}
	if got := written.Decrements[0].BlockDates; len(got) != len(wantDates) {
		t.Fatalf("expected %v block dates, got %v", wantDates, got)
	}
	if len(written.Increments) != 0 {
		t.Fatalf("confirm must not restock, got %+v", written.Increments)
	}
}

func TestOrderService_Transition_CancelAfterConfirmRestocks(t *testing.T) {
	ctx := context.Background()
	productID := "prd_tent"
	stored := domain.Order{
		ID:     "ord_1",
		Status: domain.OrderStatusConfirmed,
		Items: []domain.OrderItem{
			{ProductID: &productID, Name: "Party Tent", ProductType: domain.ProductTypePurchase, Quantity: 3},
		},
	}

	var written repositories.OrderTransitionWrite
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return stored, nil },
		transitionFn: func(_ context.Context, cmd repositories.OrderTransitionWrite) (domain.Order, error) {
			written = cmd
			updated := stored
			updated.Status = cmd.NewStatus
			return updated, nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	if _, err := svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusCancelled,
	}); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if len(written.Increments) != 1 || written.Increments[0].Quantity != 3 {
		t.Fatalf("expected restock of 3, got %+v", written.Increments)
	}
	if len(written.Decrements) != 0 {
		t.Fatalf("cancel must not decrement, got %+v", written.Decrements)
	}
}

func TestOrderService_Transition_PendingCancelLeavesStock(t *testing.T) {
	ctx := context.Background()
	productID := "prd_tent"
	stored := domain.Order{
		ID:     "ord_1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: &productID, Name: "Party Tent", ProductType: domain.ProductTypePurchase, Quantity: 3},
		},
	}

	var written repositories.OrderTransitionWrite
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return stored, nil },
		transitionFn: func(_ context.Context, cmd repositories.OrderTransitionWrite) (domain.Order, error) {
			written = cmd
			return stored, nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	if _, err := svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusCancelled,
	}); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if len(written.Decrements) != 0 || len(written.Increments) != 0 {
		t.Fatalf("pending cancel must not touch stock: %+v", written)
	}
}

func TestOrderService_Transition_RejectsDisallowedPairs(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{ID: "ord_1", Status: domain.OrderStatusCompleted}, nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	_, err := svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusConfirmed,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState got %v", err)
	}

	_, err = svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: "shipped",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput for unknown status got %v", err)
	}
}

func TestOrderService_Transition_InsufficientStockPassesThrough(t *testing.T) {
	ctx := context.Background()
	productID := "prd_tent"
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{
				ID:     "ord_1",
				Status: domain.OrderStatusPending,
				Items: []domain.OrderItem{
					{ProductID: &productID, Name: "Party Tent", ProductType: domain.ProductTypePurchase, Quantity: 3},
				},
			}, nil
		},
		transitionFn: func(context.Context, repositories.OrderTransitionWrite) (domain.Order, error) {
			return domain.Order{}, &repositories.InsufficientStockError{
				ProductID:   productID,
				ProductName: "Party Tent",
				Requested:   3,
				Available:   2,
			}
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	_, err := svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusConfirmed,
	})
	var stockErr *repositories.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError got %v", err)
	}
	if !strings.Contains(stockErr.Error(), "Party Tent") {
		t.Fatalf("error should name the failing product: %v", stockErr)
	}
}

func TestOrderService_Create_UnknownCouponRejected(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		insertFn: func(_ context.Context, _ domain.Order, couponCode string) error {
			return &repositories.CouponNotFoundError{Code: couponCode}
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	cmd := validCreateCommand()
	cmd.CouponCode = "GHOST50"

	_, err := svc.Create(ctx, cmd)
	if !errors.Is(err, ErrCouponRejected) {
		t.Fatalf("expected coupon rejection got %v", err)
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("invalid coupon must not read as a missing order: %v", err)
	}
	if !strings.Contains(err.Error(), "GHOST50") {
		t.Fatalf("rejection should name the code: %v", err)
	}
}

func TestOrderService_Transition_MissingProductPassesThrough(t *testing.T) {
	ctx := context.Background()
	productID := "prd_gone"
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{
				ID:     "ord_1",
				Status: domain.OrderStatusPending,
				Items: []domain.OrderItem{
					{ProductID: &productID, Name: "Retired Arch", ProductType: domain.ProductTypePurchase, Quantity: 1},
				},
			}, nil
		},
		transitionFn: func(context.Context, repositories.OrderTransitionWrite) (domain.Order, error) {
			return domain.Order{}, &repositories.ProductNotFoundError{
				ProductID:   productID,
				ProductName: "Retired Arch",
			}
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	_, err := svc.Transition(ctx, OrderTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderStatusConfirmed,
	})
	var productErr *repositories.ProductNotFoundError
	if !errors.As(err, &productErr) {
		t.Fatalf("expected ProductNotFoundError got %v", err)
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("a deleted product must not read as a missing order: %v", err)
	}
	if !strings.Contains(productErr.Error(), "Retired Arch") {
		t.Fatalf("error should name the missing product: %v", productErr)
	}
}

func TestOrderService_RecordPayment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	stored := domain.Order{
		ID:            "ord_1",
		OrderNumber:   "PR-2026-000042",
		Pricing:       domain.OrderPricing{Total: 55},
		PaymentStatus: domain.PaymentStatusPending,
		PaymentType:   domain.PaymentTypeFull,
	}

	var updated *domain.Order
	notifier := &stubNotifier{}
	events := &captureOrderEvents{}
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) { return stored, nil },
		updateFn: func(_ context.Context, order domain.Order) error {
			updated = &order
			return nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   repo,
		Clock:    func() time.Time { return now },
		Events:   events,
		Notifier: notifier,
	})

	order, err := svc.RecordPayment(ctx, RecordPaymentCommand{
		OrderID:        "ord_1",
		IntentID:       "pi_123",
		AmountReceived: 5500,
	})
	if err != nil {
		t.Fatalf("RecordPayment returned error: %v", err)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid got %s", order.PaymentStatus)
	}
	if order.AmountPaid != 55 || order.AmountDue != 0 {
		t.Fatalf("unexpected amounts paid=%v due=%v", order.AmountPaid, order.AmountDue)
	}
	if order.PaymentRef != "pi_123" {
		t.Fatalf("payment ref not recorded: %q", order.PaymentRef)
	}
	if updated == nil {
		t.Fatalf("repository update not invoked")
	}
	if len(notifier.orders) != 1 {
		t.Fatalf("expected one confirmation mail, got %d", len(notifier.orders))
	}
	if len(events.events) != 1 || events.events[0].Type != "order.payment.recorded" {
		t.Fatalf("expected payment event, got %+v", events.events)
	}
}

func TestOrderService_RecordPayment_IdempotentWhenPaid(t *testing.T) {
	ctx := context.Background()
	updateCalls := 0
	notifier := &stubNotifier{}
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{
				ID:            "ord_1",
				PaymentStatus: domain.PaymentStatusPaid,
				AmountPaid:    55,
				Pricing:       domain.OrderPricing{Total: 55},
			}, nil
		},
		updateFn: func(context.Context, domain.Order) error {
			updateCalls++
			return nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo, Notifier: notifier})

	order, err := svc.RecordPayment(ctx, RecordPaymentCommand{
		OrderID:        "ord_1",
		IntentID:       "pi_replay",
		AmountReceived: 5500,
	})
	if err != nil {
		t.Fatalf("RecordPayment returned error: %v", err)
	}
	if updateCalls != 0 {
		t.Fatalf("paid orders must be a no-op, saw %d updates", updateCalls)
	}
	if order.AmountPaid != 55 {
		t.Fatalf("amount paid must not change on replay, got %v", order.AmountPaid)
	}
	if len(notifier.orders) != 0 {
		t.Fatalf("replay must not send mail")
	}
}

func TestOrderService_RecordPayment_MailFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	var loggedEvent string
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{ID: "ord_1", Pricing: domain.OrderPricing{Total: 55}}, nil
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   repo,
		Notifier: &stubNotifier{err: errors.New("smtp down")},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			loggedEvent = event
		},
	})

	if _, err := svc.RecordPayment(ctx, RecordPaymentCommand{
		OrderID:        "ord_1",
		IntentID:       "pi_1",
		AmountReceived: 5500,
	}); err != nil {
		t.Fatalf("mail failure must not fail the payment: %v", err)
	}
	if loggedEvent != "order.payment.mail.failed" {
		t.Fatalf("expected mail failure to be logged, got %q", loggedEvent)
	}
}

func TestOrderService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{}, &stubRepoError{notFound: true}
		},
	}
	svc := newTestOrderService(t, OrderServiceDeps{Orders: repo})

	if _, err := svc.Get(ctx, "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound got %v", err)
	}
}
