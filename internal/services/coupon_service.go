package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/repositories"
)

const couponIDPrefix = "cpn_"

// CouponRejectionError reports why a code failed validation. The reason is
// safe to surface to the customer verbatim.
type CouponRejectionError struct {
	Reason string
}

func (e *CouponRejectionError) Error() string { return e.Reason }

// Is lets callers match any rejection with errors.Is(err, ErrCouponRejected).
func (e *CouponRejectionError) Is(target error) bool { return target == ErrCouponRejected }

func rejectCoupon(format string, args ...any) error {
	return &CouponRejectionError{Reason: fmt.Sprintf(format, args...)}
}

// CouponServiceDeps bundles dependencies required to construct a CouponService implementation.
type CouponServiceDeps struct {
	Coupons     repositories.CouponRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type couponService struct {
	repo  repositories.CouponRepository
	clock func() time.Time
	newID func() string
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, ErrCouponRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &couponService{
		repo:  deps.Coupons,
		clock: func() time.Time { return clock().UTC() },
		newID: idGen,
	}, nil
}

// Validate runs the checkout-facing checks in order; the first failure wins.
func (s *couponService) Validate(ctx context.Context, code string, cartSubtotal float64) (CouponValidation, error) {
	if s == nil || s.repo == nil {
		return CouponValidation{}, ErrCouponRepositoryMissing
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return CouponValidation{}, rejectCoupon("Coupon code is required")
	}

	coupon, err := s.repo.FindActiveByCode(ctx, normalized)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return CouponValidation{}, rejectCoupon("Invalid coupon")
		}
		return CouponValidation{}, err
	}

	now := s.clock()
	if coupon.ExpiryDate != nil && coupon.ExpiryDate.Before(now) {
		return CouponValidation{}, rejectCoupon("Coupon expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return CouponValidation{}, rejectCoupon("Coupon usage limit reached")
	}
	if cartSubtotal < coupon.MinCartValue {
		return CouponValidation{}, rejectCoupon("Minimum cart value is $%g", coupon.MinCartValue)
	}

	return CouponValidation{
		Coupon:   coupon,
		Discount: computeDiscount(coupon, cartSubtotal),
	}, nil
}

// computeDiscount caps percent discounts at maxDiscountAmount when set. Flat
// discounts apply verbatim and are deliberately not clamped to the subtotal.
func computeDiscount(coupon Coupon, cartSubtotal float64) float64 {
	switch coupon.DiscountType {
	case domain.DiscountPercent:
		discount := cartSubtotal * coupon.DiscountValue / 100
		if coupon.MaxDiscountAmount != nil && discount > *coupon.MaxDiscountAmount {
			discount = *coupon.MaxDiscountAmount
		}
		return discount
	case domain.DiscountFlat:
		return coupon.DiscountValue
	default:
		return 0
	}
}

func (s *couponService) CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	if s == nil || s.repo == nil {
		return Coupon{}, ErrCouponRepositoryMissing
	}

	coupon := cmd.Coupon
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	if err := validateCouponFields(coupon); err != nil {
		return Coupon{}, err
	}

	now := s.clock()
	coupon.ID = couponIDPrefix + s.newID()
	coupon.UsedCount = 0
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	if err := s.repo.Insert(ctx, coupon); err != nil {
		return Coupon{}, s.mapRepositoryError(err)
	}
	return coupon, nil
}

func (s *couponService) UpdateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	if s == nil || s.repo == nil {
		return Coupon{}, ErrCouponRepositoryMissing
	}
	if strings.TrimSpace(cmd.Coupon.ID) == "" {
		return Coupon{}, fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}

	existing, err := s.repo.FindByID(ctx, cmd.Coupon.ID)
	if err != nil {
		return Coupon{}, s.mapRepositoryError(err)
	}

	updated := cmd.Coupon
	updated.Code = strings.ToUpper(strings.TrimSpace(updated.Code))
	if updated.Code == "" {
		updated.Code = existing.Code
	}
	if err := validateCouponFields(updated); err != nil {
		return Coupon{}, err
	}

	// usedCount only moves through the transactional increment.
	updated.UsedCount = existing.UsedCount
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, updated); err != nil {
		return Coupon{}, s.mapRepositoryError(err)
	}
	return updated, nil
}

func (s *couponService) SetCouponActive(ctx context.Context, couponID string, active bool) (Coupon, error) {
	if s == nil || s.repo == nil {
		return Coupon{}, ErrCouponRepositoryMissing
	}

	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return Coupon{}, s.mapRepositoryError(err)
	}

	coupon.IsActive = active
	coupon.UpdatedAt = s.clock()
	if err := s.repo.Update(ctx, coupon); err != nil {
		return Coupon{}, s.mapRepositoryError(err)
	}
	return coupon, nil
}

func (s *couponService) GetCoupon(ctx context.Context, couponID string) (Coupon, error) {
	if s == nil || s.repo == nil {
		return Coupon{}, ErrCouponRepositoryMissing
	}
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return Coupon{}, s.mapRepositoryError(err)
	}
	return coupon, nil
}

func (s *couponService) ListCoupons(ctx context.Context, pager Pagination) (domain.CursorPage[Coupon], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[Coupon]{}, ErrCouponRepositoryMissing
	}
	page, err := s.repo.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Coupon]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *couponService) DeleteCoupon(ctx context.Context, couponID string) error {
	if s == nil || s.repo == nil {
		return ErrCouponRepositoryMissing
	}
	if err := s.repo.Delete(ctx, couponID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *couponService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCouponNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCouponConflict, err)
		}
	}
	return err
}

func validateCouponFields(coupon Coupon) error {
	if coupon.Code == "" {
		return fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	switch coupon.DiscountType {
	case domain.DiscountPercent, domain.DiscountFlat:
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrCouponInvalidInput, coupon.DiscountType)
	}
	if coupon.DiscountValue < 0 {
		return fmt.Errorf("%w: discount value must not be negative", ErrCouponInvalidInput)
	}
	if coupon.MaxDiscountAmount != nil && *coupon.MaxDiscountAmount < 0 {
		return fmt.Errorf("%w: max discount amount must not be negative", ErrCouponInvalidInput)
	}
	if coupon.MinCartValue < 0 {
		return fmt.Errorf("%w: min cart value must not be negative", ErrCouponInvalidInput)
	}
	if coupon.UsageLimit != nil && *coupon.UsageLimit < 0 {
		return fmt.Errorf("%w: usage limit must not be negative", ErrCouponInvalidInput)
	}
	return nil
}
