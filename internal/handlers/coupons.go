package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/services"
)

const (
	defaultCouponPageSize = 50
	maxCouponPageSize     = 200
	maxCouponBodySize     = 16 * 1024
)

var validDiscountTypes = map[domain.DiscountType]struct{}{
	domain.DiscountPercent: {},
	domain.DiscountFlat:    {},
}

// CouponHandlers exposes coupon validation for the storefront and coupon
// management for the back office.
type CouponHandlers struct {
	coupons services.CouponService
	limiter rateLimiter
}

// NewCouponHandlers constructs a new CouponHandlers instance.
func NewCouponHandlers(coupons services.CouponService, limiter rateLimiter) *CouponHandlers {
	return &CouponHandlers{coupons: coupons, limiter: limiter}
}

// Routes registers the public coupon endpoints.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/validate", h.validateCoupon)
}

// AdminRoutes registers the back-office coupon endpoints.
func (h *CouponHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listCoupons)
	r.Post("/", h.createCoupon)
	r.Get("/{couponID}", h.getCoupon)
	r.Put("/{couponID}", h.updateCoupon)
	r.Patch("/{couponID}/active", h.setCouponActive)
	r.Delete("/{couponID}", h.deleteCoupon)
}

type couponPayload struct {
	ID                string   `json:"id"`
	Code              string   `json:"code"`
	DiscountType      string   `json:"discount_type"`
	DiscountValue     float64  `json:"discount_value"`
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"`
	MinCartValue      float64  `json:"min_cart_value"`
	ExpiryDate        string   `json:"expiry_date,omitempty"`
	UsageLimit        *int     `json:"usage_limit,omitempty"`
	UsedCount         int      `json:"used_count"`
	IsActive          bool     `json:"is_active"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

type couponResponse struct {
	Coupon couponPayload `json:"coupon"`
}

type couponListResponse struct {
	Items         []couponPayload `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type validateCouponRequest struct {
	Code         string  `json:"code"`
	CartSubtotal float64 `json:"cart_subtotal"`
}

type validateCouponResponse struct {
	Valid    bool          `json:"valid"`
	Coupon   couponPayload `json:"coupon"`
	Discount float64       `json:"discount"`
}

type upsertCouponRequest struct {
	Code              string   `json:"code"`
	DiscountType      string   `json:"discount_type"`
	DiscountValue     float64  `json:"discount_value"`
	MaxDiscountAmount *float64 `json:"max_discount_amount"`
	MinCartValue      float64  `json:"min_cart_value"`
	ExpiryDate        string   `json:"expiry_date"`
	UsageLimit        *int     `json:"usage_limit"`
	IsActive          *bool    `json:"is_active"`
}

type setCouponActiveRequest struct {
	Active bool `json:"active"`
}

func (h *CouponHandlers) validateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many validation attempts, try again later", http.StatusTooManyRequests))
		return
	}

	var req validateCouponRequest
	if !decodeJSONBody(ctx, w, r, maxCouponBodySize, &req) {
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon code is required", http.StatusBadRequest))
		return
	}

	validation, err := h.coupons.Validate(ctx, code, req.CartSubtotal)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, validateCouponResponse{
		Valid:    true,
		Coupon:   buildCouponPayload(validation.Coupon),
		Discount: validation.Discount,
	})
}

func (h *CouponHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	pageSize := defaultCouponPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case size <= 0:
			pageSize = defaultCouponPageSize
		case size > maxCouponPageSize:
			pageSize = maxCouponPageSize
		default:
			pageSize = size
		}
	}

	page, err := h.coupons.ListCoupons(ctx, services.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	})
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	items := make([]couponPayload, 0, len(page.Items))
	for _, coupon := range page.Items {
		items = append(items, buildCouponPayload(coupon))
	}
	writeJSONResponse(w, http.StatusOK, couponListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *CouponHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	h.upsertCoupon(w, r, "")
}

func (h *CouponHandlers) updateCoupon(w http.ResponseWriter, r *http.Request) {
	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}
	h.upsertCoupon(w, r, couponID)
}

func (h *CouponHandlers) upsertCoupon(w http.ResponseWriter, r *http.Request, couponID string) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req upsertCouponRequest
	if !decodeJSONBody(ctx, w, r, maxCouponBodySize, &req) {
		return
	}

	coupon, err := req.toDomain(couponID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.UpsertCouponCommand{
		Coupon:  coupon,
		ActorID: actorIDFromContext(ctx),
	}

	var saved services.Coupon
	if couponID == "" {
		saved, err = h.coupons.CreateCoupon(ctx, cmd)
	} else {
		saved, err = h.coupons.UpdateCoupon(ctx, cmd)
	}
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if couponID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, couponResponse{Coupon: buildCouponPayload(saved)})
}

func (h *CouponHandlers) getCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	coupon, err := h.coupons.GetCoupon(ctx, couponID)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, couponResponse{Coupon: buildCouponPayload(coupon)})
}

func (h *CouponHandlers) setCouponActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	var req setCouponActiveRequest
	if !decodeJSONBody(ctx, w, r, maxCouponBodySize, &req) {
		return
	}

	coupon, err := h.coupons.SetCouponActive(ctx, couponID, req.Active)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, couponResponse{Coupon: buildCouponPayload(coupon)})
}

func (h *CouponHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	if err := h.coupons.DeleteCoupon(ctx, couponID); err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req upsertCouponRequest) toDomain(couponID string) (services.Coupon, error) {
	discountType := domain.DiscountType(strings.ToLower(strings.TrimSpace(req.DiscountType)))
	if _, ok := validDiscountTypes[discountType]; !ok {
		return services.Coupon{}, errors.New("discount_type must be percent or flat")
	}

	coupon := services.Coupon{
		ID:            couponID,
		Code:          strings.TrimSpace(req.Code),
		DiscountType:  discountType,
		DiscountValue: req.DiscountValue,
		MinCartValue:  req.MinCartValue,
		IsActive:      true,
	}
	if req.MaxDiscountAmount != nil {
		amount := *req.MaxDiscountAmount
		coupon.MaxDiscountAmount = &amount
	}
	if req.UsageLimit != nil {
		limit := *req.UsageLimit
		coupon.UsageLimit = &limit
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if raw := strings.TrimSpace(req.ExpiryDate); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			return services.Coupon{}, errors.New("expiry_date must be an RFC3339 timestamp")
		}
		coupon.ExpiryDate = &ts
	}
	return coupon, nil
}

func buildCouponPayload(coupon services.Coupon) couponPayload {
	payload := couponPayload{
		ID:            strings.TrimSpace(coupon.ID),
		Code:          strings.TrimSpace(coupon.Code),
		DiscountType:  string(coupon.DiscountType),
		DiscountValue: coupon.DiscountValue,
		MinCartValue:  coupon.MinCartValue,
		ExpiryDate:    formatTimePtr(coupon.ExpiryDate),
		UsedCount:     coupon.UsedCount,
		IsActive:      coupon.IsActive,
		CreatedAt:     formatTime(coupon.CreatedAt),
		UpdatedAt:     formatTime(coupon.UpdatedAt),
	}
	if coupon.MaxDiscountAmount != nil {
		amount := *coupon.MaxDiscountAmount
		payload.MaxDiscountAmount = &amount
	}
	if coupon.UsageLimit != nil {
		limit := *coupon.UsageLimit
		payload.UsageLimit = &limit
	}
	return payload
}

func writeCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var rejection *services.CouponRejectionError
	switch {
	case errors.As(err, &rejection):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_rejected", rejection.Reason, http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponConflict):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to process coupon request", http.StatusInternalServerError))
	}
}

func clientKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, found := strings.Cut(addr, ":"); found && host != "" {
		return host
	}
	return addr
}
