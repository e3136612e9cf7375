package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/services"
)

type stubCouponService struct {
	validateFunc  func(ctx context.Context, code string, cartSubtotal float64) (services.CouponValidation, error)
	createFunc    func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error)
	updateFunc    func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error)
	setActiveFunc func(ctx context.Context, couponID string, active bool) (services.Coupon, error)
	getFunc       func(ctx context.Context, couponID string) (services.Coupon, error)
	listFunc      func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Coupon], error)
	deleteFunc    func(ctx context.Context, couponID string) error
}

func (s *stubCouponService) Validate(ctx context.Context, code string, cartSubtotal float64) (services.CouponValidation, error) {
	if s.validateFunc == nil {
		return services.CouponValidation{}, nil
	}
	return s.validateFunc(ctx, code, cartSubtotal)
}

func (s *stubCouponService) CreateCoupon(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
	if s.createFunc == nil {
		return services.Coupon{}, nil
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCouponService) UpdateCoupon(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
	if s.updateFunc == nil {
		return services.Coupon{}, nil
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubCouponService) SetCouponActive(ctx context.Context, couponID string, active bool) (services.Coupon, error) {
	if s.setActiveFunc == nil {
		return services.Coupon{}, nil
	}
	return s.setActiveFunc(ctx, couponID, active)
}

func (s *stubCouponService) GetCoupon(ctx context.Context, couponID string) (services.Coupon, error) {
	if s.getFunc == nil {
		return services.Coupon{}, nil
	}
	return s.getFunc(ctx, couponID)
}

func (s *stubCouponService) ListCoupons(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Coupon], error) {
	if s.listFunc == nil {
		return domain.CursorPage[services.Coupon]{}, nil
	}
	return s.listFunc(ctx, pager)
}

func (s *stubCouponService) DeleteCoupon(ctx context.Context, couponID string) error {
	if s.deleteFunc == nil {
		return nil
	}
	return s.deleteFunc(ctx, couponID)
}

var _ services.CouponService = (*stubCouponService)(nil)

func TestCouponHandlersValidateSuccess(t *testing.T) {
	router := newTestRouter()
	service := &stubCouponService{
		validateFunc: func(ctx context.Context, code string, cartSubtotal float64) (services.CouponValidation, error) {
			if code != "SUMMER20" {
				t.Fatalf("expected code SUMMER20, got %s", code)
			}
			if cartSubtotal != 500 {
				t.Fatalf("expected subtotal 500, got %v", cartSubtotal)
			}
			return services.CouponValidation{
				Coupon: services.Coupon{
					ID:            "cpn_1",
					Code:          "SUMMER20",
					DiscountType:  domain.DiscountPercent,
					DiscountValue: 20,
					IsActive:      true,
				},
				Discount: 100,
			}, nil
		},
	}
	NewCouponHandlers(service, nil).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewBufferString(`{"code":"SUMMER20","cart_subtotal":500}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp validateCouponResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Valid || resp.Discount != 100 {
		t.Fatalf("expected valid response with discount 100, got %#v", resp)
	}
	if resp.Coupon.Code != "SUMMER20" {
		t.Fatalf("expected coupon echoed, got %s", resp.Coupon.Code)
	}
}

func TestCouponHandlersValidateRejectionReturnsReason(t *testing.T) {
	router := newTestRouter()
	service := &stubCouponService{
		validateFunc: func(context.Context, string, float64) (services.CouponValidation, error) {
			return services.CouponValidation{}, &services.CouponRejectionError{Reason: "coupon has expired"}
		},
	}
	NewCouponHandlers(service, nil).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewBufferString(`{"code":"EXPIRED","cart_subtotal":100}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var errResp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp["error"] != "coupon_rejected" {
		t.Fatalf("expected error code coupon_rejected, got %#v", errResp["error"])
	}
	if errResp["message"] != "coupon has expired" {
		t.Fatalf("expected rejection reason verbatim, got %#v", errResp["message"])
	}
}

func TestCouponHandlersValidateRateLimited(t *testing.T) {
	router := newTestRouter()
	clock := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(1, time.Minute, func() time.Time { return clock })
	service := &stubCouponService{
		validateFunc: func(context.Context, string, float64) (services.CouponValidation, error) {
			return services.CouponValidation{Coupon: services.Coupon{Code: "SUMMER20"}}, nil
		},
	}
	NewCouponHandlers(service, limiter).Routes(router)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/validate", bytes.NewBufferString(`{"code":"SUMMER20","cart_subtotal":100}`))
		req.RemoteAddr = "203.0.113.7:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rr.Code)
		}
	}
}

func TestCouponHandlersCreateCoupon(t *testing.T) {
	router := newTestRouter()
	var captured services.UpsertCouponCommand
	service := &stubCouponService{
		createFunc: func(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
			captured = cmd
			coupon := cmd.Coupon
			coupon.ID = "cpn_1"
			return coupon, nil
		},
	}
	NewCouponHandlers(service, nil).AdminRoutes(router)

	payload := `{"code":"FLAT50","discount_type":"flat","discount_value":50,"min_cart_value":200,"usage_limit":10,"expiry_date":"2026-12-31T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Coupon.DiscountType != domain.DiscountFlat {
		t.Fatalf("expected flat discount type, got %s", captured.Coupon.DiscountType)
	}
	if captured.Coupon.UsageLimit == nil || *captured.Coupon.UsageLimit != 10 {
		t.Fatalf("expected usage limit 10, got %#v", captured.Coupon.UsageLimit)
	}
	if captured.Coupon.ExpiryDate == nil {
		t.Fatal("expected expiry date parsed")
	}
}

func TestCouponHandlersCreateCouponRejectsUnknownDiscountType(t *testing.T) {
	router := newTestRouter()
	called := false
	service := &stubCouponService{
		createFunc: func(context.Context, services.UpsertCouponCommand) (services.Coupon, error) {
			called = true
			return services.Coupon{}, nil
		},
	}
	NewCouponHandlers(service, nil).AdminRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"code":"BOGOF","discount_type":"bogof","discount_value":1}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if called {
		t.Fatal("expected service not to be called for invalid discount type")
	}
}

func TestCouponHandlersSetActive(t *testing.T) {
	router := newTestRouter()
	service := &stubCouponService{
		setActiveFunc: func(ctx context.Context, couponID string, active bool) (services.Coupon, error) {
			if couponID != "cpn_1" {
				t.Fatalf("expected coupon cpn_1, got %s", couponID)
			}
			if active {
				t.Fatal("expected deactivation")
			}
			return services.Coupon{ID: couponID, IsActive: active}, nil
		},
	}
	NewCouponHandlers(service, nil).AdminRoutes(router)

	req := httptest.NewRequest(http.MethodPatch, "/cpn_1/active", bytes.NewBufferString(`{"active":false}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestCouponHandlersGetCouponNotFound(t *testing.T) {
	router := newTestRouter()
	service := &stubCouponService{
		getFunc: func(context.Context, string) (services.Coupon, error) {
			return services.Coupon{}, services.ErrCouponNotFound
		},
	}
	NewCouponHandlers(service, nil).AdminRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/cpn_missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
