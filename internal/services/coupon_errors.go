package services

import "errors"

var (
	// ErrCouponRepositoryMissing indicates the coupon repository dependency is absent.
	ErrCouponRepositoryMissing = errors.New("coupon service: repository is not configured")
	// ErrCouponInvalidInput signals the caller provided invalid coupon data.
	ErrCouponInvalidInput = errors.New("coupon service: invalid input")
	// ErrCouponNotFound indicates no coupon exists for the provided code or id.
	ErrCouponNotFound = errors.New("coupon service: coupon not found")
	// ErrCouponRejected carries a human-readable reason a code failed validation.
	ErrCouponRejected = errors.New("coupon service: coupon rejected")
	// ErrCouponConflict indicates a duplicate code or concurrent modification.
	ErrCouponConflict = errors.New("coupon service: conflict")
)
