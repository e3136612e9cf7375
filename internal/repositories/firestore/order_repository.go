package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/party-rentals/api/internal/domain"
	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
	"github.com/party-rentals/api/internal/repositories"
)

const (
	ordersCollection   = "orders"
	productsCollection = "products"
	couponsCollection  = "coupons"
)

type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	products *pfirestore.BaseRepository[productDocument]
	coupons  *pfirestore.BaseRepository[couponDocument]
}

func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
		coupons:  pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil),
	}, nil
}

// Insert creates the order document. When couponCode is set, the matching
// coupon's usedCount is incremented in the same transaction so the usage
// limit can never be overshot by concurrent checkouts.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order, couponCode string) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order insert: id is required")
	}

	doc := newOrderDocument(order)
	couponCode = strings.ToUpper(strings.TrimSpace(couponCode))

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}

		if couponCode != "" {
			couponSnap, err := r.findCouponByCodeTx(ctx, tx, couponCode)
			if err != nil {
				return err
			}
			if err := incrementCouponUsageTx(tx, couponSnap, order.CreatedAt); err != nil {
				return err
			}
		}

		return tx.Create(orderRef, doc)
	})
	if err != nil {
		var couponErr *repositories.CouponNotFoundError
		if errors.As(err, &couponErr) {
			return err
		}
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order update: id is required")
	}
	_, err := r.orders.Set(ctx, order.ID, newOrderDocument(order))
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: id is required")
	}
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order delete: id is required")
	}
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if len(filter.Status) == 1 {
		query = query.Where("orderStatus", "==", filter.Status[0])
	} else if len(filter.Status) > 1 {
		query = query.Where("orderStatus", "in", filter.Status)
	}
	if len(filter.PaymentStatus) == 1 {
		query = query.Where("paymentStatus", "==", filter.PaymentStatus[0])
	} else if len(filter.PaymentStatus) > 1 {
		query = query.Where("paymentStatus", "in", filter.PaymentStatus)
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<=", filter.DateRange.To.UTC())
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		decoded, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := encodeOrderPageToken(orderPageToken{ID: last.ID, CreatedAt: last.CreatedAt})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{Items: orders, NextPageToken: nextToken}, nil
}

// ApplyTransition performs the status write together with every inventory
// adjustment in one transaction. Firestore requires all reads before writes,
// so the product documents are loaded and validated first; any shortfall or
// rental date collision aborts before a single write is issued.
func (r *OrderRepository) ApplyTransition(ctx context.Context, cmd repositories.OrderTransitionWrite) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(cmd.OrderID) == "" {
		return domain.Order{}, errors.New("order transition: id is required")
	}

	now := cmd.Now.UTC()
	var updated domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		orderSnap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		var order orderDocument
		if err := orderSnap.DataTo(&order); err != nil {
			return fmt.Errorf("decode order %s: %w", cmd.OrderID, err)
		}
		if cmd.ExpectedStatus != "" && order.OrderStatus != string(cmd.ExpectedStatus) {
			return status.Errorf(codes.FailedPrecondition,
				"order %s moved to %s while transition was pending", cmd.OrderID, order.OrderStatus)
		}

		type productWrite struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		writes := make([]productWrite, 0, len(cmd.Decrements)+len(cmd.Increments))

		for _, adj := range cmd.Decrements {
			ref, doc, err := r.loadProductTx(ctx, tx, adj)
			if err != nil {
				return err
			}
			if doc.AvailabilityCount < adj.Quantity {
				return &repositories.InsufficientStockError{
					ProductID:   adj.ProductID,
					ProductName: productDisplayName(adj, doc),
					Requested:   adj.Quantity,
					Available:   doc.AvailabilityCount,
				}
			}
			blocked, err := mergeBlockedDates(doc.BlockedDates, adj.BlockDates)
			if err != nil {
				var conflict *conflictDate
				if errors.As(err, &conflict) {
					return &repositories.DateConflictError{
						ProductID:   adj.ProductID,
						ProductName: productDisplayName(adj, doc),
						Date:        conflict.date,
					}
				}
				return err
			}
			doc.AvailabilityCount -= adj.Quantity
			doc.BlockedDates = blocked
			doc.UpdatedAt = now
			writes = append(writes, productWrite{ref: ref, doc: doc})
		}

		for _, adj := range cmd.Increments {
			ref, doc, err := r.loadProductTx(ctx, tx, adj)
			if err != nil {
				return err
			}
			doc.AvailabilityCount += adj.Quantity
			doc.BlockedDates = releaseBlockedDates(doc.BlockedDates, adj.ReleaseDates)
			doc.UpdatedAt = now
			writes = append(writes, productWrite{ref: ref, doc: doc})
		}

		for _, w := range writes {
			if err := tx.Set(w.ref, w.doc); err != nil {
				return err
			}
		}

		order.OrderStatus = string(cmd.NewStatus)
		order.StatusHistory = append(order.StatusHistory, statusHistoryDocument{
			Status: string(cmd.NewStatus),
			At:     now,
			Note:   strings.TrimSpace(cmd.Note),
		})
		order.UpdatedAt = now
		if err := tx.Set(orderRef, order); err != nil {
			return err
		}

		updated = order.toDomain(cmd.OrderID)
		return nil
	})
	if err != nil {
		var stockErr *repositories.InsufficientStockError
		var dateErr *repositories.DateConflictError
		var productErr *repositories.ProductNotFoundError
		if errors.As(err, &stockErr) || errors.As(err, &dateErr) || errors.As(err, &productErr) {
			return domain.Order{}, err
		}
		return domain.Order{}, pfirestore.WrapError("orders.transition", err)
	}
	return updated, nil
}

// loadProductTx reads a line item's product inside the transaction. A line
// item pointing at a deleted product surfaces as a ProductNotFoundError
// naming the item rather than a bare NotFound.
func (r *OrderRepository) loadProductTx(ctx context.Context, tx *firestore.Transaction, adj repositories.StockAdjustment) (*firestore.DocumentRef, productDocument, error) {
	ref, err := r.products.DocumentRef(ctx, adj.ProductID)
	if err != nil {
		return nil, productDocument{}, err
	}
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, productDocument{}, &repositories.ProductNotFoundError{
				ProductID:   adj.ProductID,
				ProductName: adj.ProductName,
			}
		}
		return nil, productDocument{}, err
	}
	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, productDocument{}, fmt.Errorf("decode product %s: %w", adj.ProductID, err)
	}
	return ref, doc, nil
}

func (r *OrderRepository) findCouponByCodeTx(ctx context.Context, tx *firestore.Transaction, code string) (*firestore.DocumentSnapshot, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	query := client.Collection(couponsCollection).
		Where("code", "==", code).
		Where("isActive", "==", true).
		Limit(1)
	snaps, err := tx.Documents(query).GetAll()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, &repositories.CouponNotFoundError{Code: code}
	}
	return snaps[0], nil
}

func productDisplayName(adj repositories.StockAdjustment, doc productDocument) string {
	if strings.TrimSpace(adj.ProductName) != "" {
		return adj.ProductName
	}
	return doc.Name
}

type conflictDate struct {
	date string
}

func (c *conflictDate) Error() string { return "date already blocked: " + c.date }

// mergeBlockedDates unions the requested rental days into the existing set,
// failing on the first day that is already taken.
func mergeBlockedDates(existing, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return existing, nil
	}
	seen := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		seen[d] = struct{}{}
	}
	merged := append([]string(nil), existing...)
	for _, d := range requested {
		if _, taken := seen[d]; taken {
			return nil, &conflictDate{date: d}
		}
		seen[d] = struct{}{}
		merged = append(merged, d)
	}
	return merged, nil
}

func releaseBlockedDates(existing, release []string) []string {
	if len(release) == 0 {
		return existing
	}
	drop := make(map[string]struct{}, len(release))
	for _, d := range release {
		drop[d] = struct{}{}
	}
	kept := existing[:0:0]
	for _, d := range existing {
		if _, ok := drop[d]; ok {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// Document structures --------------------------------------------------------

type orderDocument struct {
	OrderNumber   string                  `firestore:"orderNumber"`
	Customer      customerDocument        `firestore:"customer"`
	Items         []orderItemDocument     `firestore:"items"`
	Pricing       pricingDocument         `firestore:"pricing"`
	Coupon        *orderCouponDocument    `firestore:"coupon,omitempty"`
	PaymentStatus string                  `firestore:"paymentStatus"`
	PaymentType   string                  `firestore:"paymentType"`
	PaymentRef    string                  `firestore:"paymentRef,omitempty"`
	AmountPaid    float64                 `firestore:"amountPaid"`
	AmountDue     float64                 `firestore:"amountDue"`
	OrderStatus   string                  `firestore:"orderStatus"`
	StatusHistory []statusHistoryDocument `firestore:"statusHistory"`
	Notes         string                  `firestore:"notes,omitempty"`
	CreatedAt     time.Time               `firestore:"createdAt"`
	UpdatedAt     time.Time               `firestore:"updatedAt"`
}

type customerDocument struct {
	Name        string `firestore:"name"`
	Email       string `firestore:"email"`
	Phone       string `firestore:"phone,omitempty"`
	AddressLine string `firestore:"addressLine"`
	City        string `firestore:"city,omitempty"`
	State       string `firestore:"state,omitempty"`
	PostalCode  string `firestore:"postalCode,omitempty"`
}

type orderItemDocument struct {
	ProductID   *string             `firestore:"productId"`
	Name        string              `firestore:"name"`
	ProductType string              `firestore:"productType"`
	Quantity    int                 `firestore:"qty"`
	UnitPrice   float64             `firestore:"unitPrice"`
	LineTotal   float64             `firestore:"lineTotal"`
	Days        int                 `firestore:"days,omitempty"`
	StartDate   *time.Time          `firestore:"startDate,omitempty"`
	EndDate     *time.Time          `firestore:"endDate,omitempty"`
	Image       string              `firestore:"image,omitempty"`
	Addons      []itemAddonDocument `firestore:"addons,omitempty"`
	Signage     *signageDocument    `firestore:"signageData,omitempty"`
	CustomTitle string              `firestore:"customTitle,omitempty"`
}

type itemAddonDocument struct {
	OptionID    string                     `firestore:"optionId,omitempty"`
	Name        string                     `firestore:"name"`
	Price       float64                    `firestore:"price"`
	SignageText string                     `firestore:"signageText,omitempty"`
	VinylColor  string                     `firestore:"vinylColor,omitempty"`
	VinylHex    string                     `firestore:"vinylHex,omitempty"`
	Shelving    *shelvingSelectionDocument `firestore:"shelvingData,omitempty"`
}

type shelvingSelectionDocument struct {
	Tier     string `firestore:"tier"`
	Size     string `firestore:"size,omitempty"`
	Quantity int    `firestore:"quantity"`
}

type signageDocument struct {
	Texts      []string `firestore:"texts,omitempty"`
	Background string   `firestore:"background,omitempty"`
}

type pricingDocument struct {
	Subtotal    float64 `firestore:"subtotal"`
	Discount    float64 `firestore:"discount"`
	DeliveryFee float64 `firestore:"deliveryFee"`
	Tax         float64 `firestore:"tax"`
	Total       float64 `firestore:"total"`
}

type orderCouponDocument struct {
	Code     string  `firestore:"code"`
	Discount float64 `firestore:"discount"`
}

type statusHistoryDocument struct {
	Status string    `firestore:"status"`
	At     time.Time `firestore:"at"`
	Note   string    `firestore:"note,omitempty"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = newOrderItemDocument(item)
	}
	history := make([]statusHistoryDocument, len(order.StatusHistory))
	for i, entry := range order.StatusHistory {
		history[i] = statusHistoryDocument{
			Status: string(entry.Status),
			At:     entry.At.UTC(),
			Note:   entry.Note,
		}
	}
	var coupon *orderCouponDocument
	if order.Coupon != nil {
		coupon = &orderCouponDocument{Code: order.Coupon.Code, Discount: order.Coupon.Discount}
	}
	return orderDocument{
		OrderNumber: order.OrderNumber,
		Customer: customerDocument{
			Name:        order.Customer.Name,
			Email:       order.Customer.Email,
			Phone:       order.Customer.Phone,
			AddressLine: order.Customer.AddressLine,
			City:        order.Customer.City,
			State:       order.Customer.State,
			PostalCode:  order.Customer.PostalCode,
		},
		Items: items,
		Pricing: pricingDocument{
			Subtotal:    order.Pricing.Subtotal,
			Discount:    order.Pricing.Discount,
			DeliveryFee: order.Pricing.DeliveryFee,
			Tax:         order.Pricing.Tax,
			Total:       order.Pricing.Total,
		},
		Coupon:        coupon,
		PaymentStatus: string(order.PaymentStatus),
		PaymentType:   string(order.PaymentType),
		PaymentRef:    order.PaymentRef,
		AmountPaid:    order.AmountPaid,
		AmountDue:     order.AmountDue,
		OrderStatus:   string(order.Status),
		StatusHistory: history,
		Notes:         order.Notes,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
}

func newOrderItemDocument(item domain.OrderItem) orderItemDocument {
	addons := make([]itemAddonDocument, len(item.Addons))
	for i, addon := range item.Addons {
		var shelving *shelvingSelectionDocument
		if addon.Shelving != nil {
			shelving = &shelvingSelectionDocument{
				Tier:     addon.Shelving.Tier,
				Size:     addon.Shelving.Size,
				Quantity: addon.Shelving.Quantity,
			}
		}
		addons[i] = itemAddonDocument{
			OptionID:    addon.OptionID,
			Name:        addon.Name,
			Price:       addon.Price,
			SignageText: addon.SignageText,
			VinylColor:  addon.VinylColor,
			VinylHex:    addon.VinylHex,
			Shelving:    shelving,
		}
	}
	var signage *signageDocument
	if item.Signage != nil {
		signage = &signageDocument{
			Texts:      append([]string(nil), item.Signage.Texts...),
			Background: item.Signage.Background,
		}
	}
	return orderItemDocument{
		ProductID:   item.ProductID,
		Name:        item.Name,
		ProductType: string(item.ProductType),
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal,
		Days:        item.Days,
		StartDate:   item.StartDate,
		EndDate:     item.EndDate,
		Image:       item.Image,
		Addons:      addons,
		Signage:     signage,
		CustomTitle: item.CustomTitle,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = item.toDomain()
	}
	history := make([]domain.StatusHistoryEntry, len(d.StatusHistory))
	for i, entry := range d.StatusHistory {
		history[i] = domain.StatusHistoryEntry{
			Status: domain.OrderStatus(entry.Status),
			At:     entry.At,
			Note:   entry.Note,
		}
	}
	var coupon *domain.OrderCoupon
	if d.Coupon != nil {
		coupon = &domain.OrderCoupon{Code: d.Coupon.Code, Discount: d.Coupon.Discount}
	}
	return domain.Order{
		ID:          id,
		OrderNumber: d.OrderNumber,
		Customer: domain.OrderCustomer{
			Name:        d.Customer.Name,
			Email:       d.Customer.Email,
			Phone:       d.Customer.Phone,
			AddressLine: d.Customer.AddressLine,
			City:        d.Customer.City,
			State:       d.Customer.State,
			PostalCode:  d.Customer.PostalCode,
		},
		Items: items,
		Pricing: domain.OrderPricing{
			Subtotal:    d.Pricing.Subtotal,
			Discount:    d.Pricing.Discount,
			DeliveryFee: d.Pricing.DeliveryFee,
			Tax:         d.Pricing.Tax,
			Total:       d.Pricing.Total,
		},
		Coupon:        coupon,
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		PaymentType:   domain.PaymentType(d.PaymentType),
		PaymentRef:    d.PaymentRef,
		AmountPaid:    d.AmountPaid,
		AmountDue:     d.AmountDue,
		Status:        domain.OrderStatus(d.OrderStatus),
		StatusHistory: history,
		Notes:         d.Notes,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (d orderItemDocument) toDomain() domain.OrderItem {
	addons := make([]domain.ItemAddon, len(d.Addons))
	for i, addon := range d.Addons {
		var shelving *domain.ShelvingSelection
		if addon.Shelving != nil {
			shelving = &domain.ShelvingSelection{
				Tier:     addon.Shelving.Tier,
				Size:     addon.Shelving.Size,
				Quantity: addon.Shelving.Quantity,
			}
		}
		addons[i] = domain.ItemAddon{
			OptionID:    addon.OptionID,
			Name:        addon.Name,
			Price:       addon.Price,
			SignageText: addon.SignageText,
			VinylColor:  addon.VinylColor,
			VinylHex:    addon.VinylHex,
			Shelving:    shelving,
		}
	}
	var signage *domain.SignageData
	if d.Signage != nil {
		signage = &domain.SignageData{
			Texts:      append([]string(nil), d.Signage.Texts...),
			Background: d.Signage.Background,
		}
	}
	return domain.OrderItem{
		ProductID:   d.ProductID,
		Name:        d.Name,
		ProductType: domain.ProductType(d.ProductType),
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		LineTotal:   d.LineTotal,
		Days:        d.Days,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Image:       d.Image,
		Addons:      addons,
		Signage:     signage,
		CustomTitle: d.CustomTitle,
	}
}

type orderPageToken struct {
	ID        string
	CreatedAt time.Time
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode order page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode order page token: %w", err)
	}
	var token orderPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode order page token json: %w", err)
	}
	return &token, nil
}
