package services

import "errors"

var (
	// ErrPricingConfigRepositoryMissing indicates the pricing config repository dependency is absent.
	ErrPricingConfigRepositoryMissing = errors.New("pricing config service: repository is not configured")
	// ErrPricingConfigInvalidInput signals a field write that violates the numeric invariants.
	ErrPricingConfigInvalidInput = errors.New("pricing config: invalid input")
	// ErrPricingConfigItemNotFound indicates an unknown tier size or distance range id.
	ErrPricingConfigItemNotFound = errors.New("pricing config: item not found")
)
