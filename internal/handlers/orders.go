package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/platform/auth"
	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/repositories"
	"github.com/party-rentals/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 256 * 1024
	maxTransitionBody    = 4 * 1024
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:    {},
	domain.OrderStatusConfirmed:  {},
	domain.OrderStatusDispatched: {},
	domain.OrderStatusCompleted:  {},
	domain.OrderStatusCancelled:  {},
}

// OrderHandlers exposes checkout order creation for the storefront and the
// lifecycle endpoints used by the back office.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the storefront-facing /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
}

// AdminRoutes registers the back-office order endpoints. Callers mount these
// behind the admin authentication middleware.
func (h *OrderHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}/status", h.transitionOrder)
	r.Delete("/{orderID}", h.deleteOrder)
}

type orderCustomerPayload struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

type orderShelvingPayload struct {
	Tier     string `json:"tier"`
	Size     string `json:"size,omitempty"`
	Quantity int    `json:"quantity"`
}

type orderAddonPayload struct {
	OptionID    string                `json:"option_id,omitempty"`
	Name        string                `json:"name"`
	Price       float64               `json:"price"`
	SignageText string                `json:"signage_text,omitempty"`
	VinylColor  string                `json:"vinyl_color,omitempty"`
	VinylHex    string                `json:"vinyl_hex,omitempty"`
	Shelving    *orderShelvingPayload `json:"shelving,omitempty"`
}

type orderSignagePayload struct {
	Texts      []string `json:"texts,omitempty"`
	Background string   `json:"background,omitempty"`
}

type orderItemPayload struct {
	ProductID   *string              `json:"product_id,omitempty"`
	Name        string               `json:"name"`
	ProductType string               `json:"product_type"`
	Quantity    int                  `json:"quantity"`
	UnitPrice   float64              `json:"unit_price"`
	LineTotal   float64              `json:"line_total"`
	Days        int                  `json:"days,omitempty"`
	StartDate   string               `json:"start_date,omitempty"`
	EndDate     string               `json:"end_date,omitempty"`
	Image       string               `json:"image,omitempty"`
	Addons      []orderAddonPayload  `json:"addons,omitempty"`
	Signage     *orderSignagePayload `json:"signage,omitempty"`
	CustomTitle string               `json:"custom_title,omitempty"`
}

type orderPricingPayload struct {
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	DeliveryFee float64 `json:"delivery_fee"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

type orderCouponPayload struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

type orderHistoryPayload struct {
	Status string `json:"status"`
	At     string `json:"at"`
	Note   string `json:"note,omitempty"`
}

type orderPayload struct {
	ID            string                `json:"id"`
	OrderNumber   string                `json:"order_number"`
	Customer      orderCustomerPayload  `json:"customer"`
	Items         []orderItemPayload    `json:"items"`
	Pricing       orderPricingPayload   `json:"pricing"`
	Coupon        *orderCouponPayload   `json:"coupon,omitempty"`
	PaymentStatus string                `json:"payment_status"`
	PaymentType   string                `json:"payment_type"`
	PaymentRef    string                `json:"payment_ref,omitempty"`
	AmountPaid    float64               `json:"amount_paid"`
	AmountDue     float64               `json:"amount_due"`
	Status        string                `json:"status"`
	StatusHistory []orderHistoryPayload `json:"status_history,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type createOrderRequest struct {
	Customer    orderCustomerPayload `json:"customer"`
	Items       []orderItemPayload   `json:"items"`
	Pricing     orderPricingPayload  `json:"pricing"`
	CouponCode  string               `json:"coupon_code"`
	PaymentType string               `json:"payment_type"`
	PaymentRef  string               `json:"payment_ref"`
	AmountPaid  float64              `json:"amount_paid"`
	Notes       string               `json:"notes"`
}

type transitionOrderRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createOrderRequest
	if !decodeJSONBody(ctx, w, r, maxOrderBodySize, &req) {
		return
	}

	items := make([]services.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		converted, err := item.toDomain()
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "items["+strconv.Itoa(i)+"]: "+err.Error(), http.StatusBadRequest))
			return
		}
		items = append(items, converted)
	}

	cmd := services.CreateOrderCommand{
		Customer: services.OrderCustomer{
			Name:        strings.TrimSpace(req.Customer.Name),
			Email:       strings.TrimSpace(req.Customer.Email),
			Phone:       strings.TrimSpace(req.Customer.Phone),
			AddressLine: strings.TrimSpace(req.Customer.AddressLine),
			City:        strings.TrimSpace(req.Customer.City),
			State:       strings.TrimSpace(req.Customer.State),
			PostalCode:  strings.TrimSpace(req.Customer.PostalCode),
		},
		Items: items,
		Pricing: services.OrderPricing{
			Subtotal:    req.Pricing.Subtotal,
			Discount:    req.Pricing.Discount,
			DeliveryFee: req.Pricing.DeliveryFee,
			Tax:         req.Pricing.Tax,
			Total:       req.Pricing.Total,
		},
		CouponCode:  strings.TrimSpace(req.CouponCode),
		PaymentType: services.PaymentType(strings.ToUpper(strings.TrimSpace(req.PaymentType))),
		PaymentRef:  strings.TrimSpace(req.PaymentRef),
		AmountPaid:  req.AmountPaid,
		Notes:       strings.TrimSpace(req.Notes),
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()

	var dateRange domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.To = &ts
	}

	pageSize := defaultOrderPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case size <= 0:
			pageSize = defaultOrderPageSize
		case size > maxOrderPageSize:
			pageSize = maxOrderPageSize
		default:
			pageSize = size
		}
	}

	filter := services.OrderListFilter{
		Status:        parseFilterValues(query["status"]),
		PaymentStatus: parseFilterValues(query["payment_status"]),
		DateRange:     dateRange,
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	}

	page, err := h.orders.List(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req transitionOrderRequest
	if !decodeJSONBody(ctx, w, r, maxTransitionBody, &req) {
		return
	}

	status, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	cmd := services.OrderTransitionCommand{
		OrderID:      orderID,
		TargetStatus: status,
		Note:         strings.TrimSpace(req.Note),
		ActorID:      actorIDFromContext(ctx),
	}

	order, err := h.orders.Transition(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.Delete(ctx, orderID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p orderItemPayload) toDomain() (services.OrderItem, error) {
	item := services.OrderItem{
		Name:        strings.TrimSpace(p.Name),
		ProductType: domain.ProductType(strings.ToLower(strings.TrimSpace(p.ProductType))),
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		LineTotal:   p.LineTotal,
		Days:        p.Days,
		Image:       strings.TrimSpace(p.Image),
		CustomTitle: strings.TrimSpace(p.CustomTitle),
	}
	if p.ProductID != nil {
		if id := strings.TrimSpace(*p.ProductID); id != "" {
			item.ProductID = &id
		}
	}
	start, err := parseDateParam(p.StartDate)
	if err != nil {
		return services.OrderItem{}, errors.New("start_date " + err.Error())
	}
	end, err := parseDateParam(p.EndDate)
	if err != nil {
		return services.OrderItem{}, errors.New("end_date " + err.Error())
	}
	item.StartDate = start
	item.EndDate = end

	for _, addon := range p.Addons {
		converted := services.ItemAddon{
			OptionID:    strings.TrimSpace(addon.OptionID),
			Name:        strings.TrimSpace(addon.Name),
			Price:       addon.Price,
			SignageText: strings.TrimSpace(addon.SignageText),
			VinylColor:  strings.TrimSpace(addon.VinylColor),
			VinylHex:    strings.TrimSpace(addon.VinylHex),
		}
		if addon.Shelving != nil {
			converted.Shelving = &services.ShelvingSelection{
				Tier:     strings.TrimSpace(addon.Shelving.Tier),
				Size:     strings.TrimSpace(addon.Shelving.Size),
				Quantity: addon.Shelving.Quantity,
			}
		}
		item.Addons = append(item.Addons, converted)
	}

	if p.Signage != nil {
		item.Signage = &services.SignageData{
			Texts:      append([]string(nil), p.Signage.Texts...),
			Background: strings.TrimSpace(p.Signage.Background),
		}
	}
	return item, nil
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:          strings.TrimSpace(order.ID),
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		Customer: orderCustomerPayload{
			Name:        order.Customer.Name,
			Email:       order.Customer.Email,
			Phone:       order.Customer.Phone,
			AddressLine: order.Customer.AddressLine,
			City:        order.Customer.City,
			State:       order.Customer.State,
			PostalCode:  order.Customer.PostalCode,
		},
		Items: make([]orderItemPayload, 0, len(order.Items)),
		Pricing: orderPricingPayload{
			Subtotal:    order.Pricing.Subtotal,
			Discount:    order.Pricing.Discount,
			DeliveryFee: order.Pricing.DeliveryFee,
			Tax:         order.Pricing.Tax,
			Total:       order.Pricing.Total,
		},
		PaymentStatus: string(order.PaymentStatus),
		PaymentType:   string(order.PaymentType),
		PaymentRef:    strings.TrimSpace(order.PaymentRef),
		AmountPaid:    order.AmountPaid,
		AmountDue:     order.AmountDue,
		Status:        string(order.Status),
		Notes:         order.Notes,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}

	if order.Coupon != nil {
		payload.Coupon = &orderCouponPayload{
			Code:     order.Coupon.Code,
			Discount: order.Coupon.Discount,
		}
	}

	for _, item := range order.Items {
		payload.Items = append(payload.Items, buildOrderItemPayload(item))
	}
	for _, entry := range order.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, orderHistoryPayload{
			Status: string(entry.Status),
			At:     formatTime(entry.At),
			Note:   entry.Note,
		})
	}
	return payload
}

func buildOrderItemPayload(item services.OrderItem) orderItemPayload {
	payload := orderItemPayload{
		Name:        item.Name,
		ProductType: string(item.ProductType),
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   item.LineTotal,
		Days:        item.Days,
		StartDate:   formatDatePtr(item.StartDate),
		EndDate:     formatDatePtr(item.EndDate),
		Image:       item.Image,
		CustomTitle: item.CustomTitle,
	}
	if item.ProductID != nil {
		id := strings.TrimSpace(*item.ProductID)
		payload.ProductID = &id
	}
	for _, addon := range item.Addons {
		entry := orderAddonPayload{
			OptionID:    addon.OptionID,
			Name:        addon.Name,
			Price:       addon.Price,
			SignageText: addon.SignageText,
			VinylColor:  addon.VinylColor,
			VinylHex:    addon.VinylHex,
		}
		if addon.Shelving != nil {
			entry.Shelving = &orderShelvingPayload{
				Tier:     addon.Shelving.Tier,
				Size:     addon.Shelving.Size,
				Quantity: addon.Shelving.Quantity,
			}
		}
		payload.Addons = append(payload.Addons, entry)
	}
	if item.Signage != nil {
		payload.Signage = &orderSignagePayload{
			Texts:      append([]string(nil), item.Signage.Texts...),
			Background: item.Signage.Background,
		}
	}
	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var stockErr *repositories.InsufficientStockError
	var dateErr *repositories.DateConflictError
	var productErr *repositories.ProductNotFoundError
	switch {
	case errors.As(err, &stockErr):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", stockErr.Error(), http.StatusBadRequest))
	case errors.As(err, &dateErr):
		httpx.WriteError(ctx, w, httpx.NewError("date_unavailable", dateErr.Error(), http.StatusBadRequest))
	case errors.As(err, &productErr):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", productErr.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCouponRejected):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_rejected", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func parseOrderStatus(raw string) (services.OrderStatus, bool) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validOrderStatuses[status]; !ok {
		return "", false
	}
	return status, true
}

func actorIDFromContext(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return strings.TrimSpace(identity.UID)
}
