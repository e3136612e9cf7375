package services

import "errors"

var (
	// ErrOrderRepositoryMissing indicates the order repository dependency is absent.
	ErrOrderRepositoryMissing = errors.New("order service: repository is not configured")
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates a status transition outside the allowed table.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates concurrent modification or an exhausted coupon.
	ErrOrderConflict = errors.New("order: conflict")
)
