package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/repositories"
)

const (
	shelvingSizeIDPrefix  = "shs_"
	shippingRangeIDPrefix = "shr_"
	signageSizeIDPrefix   = "sgs_"
)

// PricingConfigServiceDeps bundles dependencies for the pricing config service.
type PricingConfigServiceDeps struct {
	Configs     repositories.PricingConfigRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type pricingConfigService struct {
	repo   repositories.PricingConfigRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewPricingConfigService wires a PricingConfigService backed by the provided repository.
func NewPricingConfigService(deps PricingConfigServiceDeps) (PricingConfigService, error) {
	if deps.Configs == nil {
		return nil, ErrPricingConfigRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &pricingConfigService{
		repo:   deps.Configs,
		clock:  func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

// Shelving ------------------------------------------------------------------

func (s *pricingConfigService) GetShelvingConfig(ctx context.Context) (ShelvingConfig, error) {
	if s == nil || s.repo == nil {
		return ShelvingConfig{}, ErrPricingConfigRepositoryMissing
	}
	return s.repo.EnsureShelving(ctx, s.defaultShelvingConfig())
}

func (s *pricingConfigService) AddShelvingTierASize(ctx context.Context, cmd ShelvingSizeCommand) (ShelvingConfig, error) {
	if err := validateShelvingSize(cmd); err != nil {
		return ShelvingConfig{}, err
	}
	return s.mutateShelving(ctx, func(cfg *ShelvingConfig) error {
		cfg.TierASizes = append(cfg.TierASizes, domain.ShelvingSize{
			ID:         shelvingSizeIDPrefix + s.newID(),
			Size:       strings.TrimSpace(cmd.Size),
			Dimensions: strings.TrimSpace(cmd.Dimensions),
			Price:      cmd.Price,
		})
		return nil
	})
}

func (s *pricingConfigService) UpdateShelvingTierASize(ctx context.Context, cmd ShelvingSizeCommand) (ShelvingConfig, error) {
	if err := validateShelvingSize(cmd); err != nil {
		return ShelvingConfig{}, err
	}
	return s.mutateShelving(ctx, func(cfg *ShelvingConfig) error {
		for i := range cfg.TierASizes {
			if cfg.TierASizes[i].ID != cmd.SizeID {
				continue
			}
			cfg.TierASizes[i].Size = strings.TrimSpace(cmd.Size)
			cfg.TierASizes[i].Dimensions = strings.TrimSpace(cmd.Dimensions)
			cfg.TierASizes[i].Price = cmd.Price
			return nil
		}
		return fmt.Errorf("%w: tier A size %s", ErrPricingConfigItemNotFound, cmd.SizeID)
	})
}

func (s *pricingConfigService) RemoveShelvingTierASize(ctx context.Context, sizeID string) (ShelvingConfig, error) {
	return s.mutateShelving(ctx, func(cfg *ShelvingConfig) error {
		for i := range cfg.TierASizes {
			if cfg.TierASizes[i].ID != sizeID {
				continue
			}
			cfg.TierASizes = append(cfg.TierASizes[:i], cfg.TierASizes[i+1:]...)
			return nil
		}
		return fmt.Errorf("%w: tier A size %s", ErrPricingConfigItemNotFound, sizeID)
	})
}

func (s *pricingConfigService) UpdateShelvingTierB(ctx context.Context, cmd ShelvingTierCommand) (ShelvingConfig, error) {
	if cmd.Price < 0 {
		return ShelvingConfig{}, fmt.Errorf("%w: price must not be negative", ErrPricingConfigInvalidInput)
	}
	return s.mutateShelving(ctx, func(cfg *ShelvingConfig) error {
		cfg.TierB.Dimensions = strings.TrimSpace(cmd.Dimensions)
		cfg.TierB.Price = cmd.Price
		return nil
	})
}

func (s *pricingConfigService) UpdateShelvingTierC(ctx context.Context, cmd ShelvingTierCommand) (ShelvingConfig, error) {
	if cmd.Price < 0 {
		return ShelvingConfig{}, fmt.Errorf("%w: price must not be negative", ErrPricingConfigInvalidInput)
	}
	if cmd.MaxQuantity != nil && *cmd.MaxQuantity < 1 {
		return ShelvingConfig{}, fmt.Errorf("%w: max quantity must be at least 1", ErrPricingConfigInvalidInput)
	}
	return s.mutateShelving(ctx, func(cfg *ShelvingConfig) error {
		cfg.TierC.Dimensions = strings.TrimSpace(cmd.Dimensions)
		cfg.TierC.Price = cmd.Price
		if cmd.MaxQuantity != nil {
			cfg.TierC.MaxQuantity = *cmd.MaxQuantity
		}
		return nil
	})
}

// Shipping ------------------------------------------------------------------

func (s *pricingConfigService) GetShippingConfig(ctx context.Context) (ShippingConfig, error) {
	if s == nil || s.repo == nil {
		return ShippingConfig{}, ErrPricingConfigRepositoryMissing
	}
	return s.repo.EnsureShipping(ctx, s.defaultShippingConfig())
}

func (s *pricingConfigService) AddShippingRange(ctx context.Context, cmd ShippingRangeCommand) (ShippingConfig, error) {
	if err := validateShippingRange(cmd); err != nil {
		return ShippingConfig{}, err
	}
	return s.mutateShipping(ctx, func(cfg *ShippingConfig) error {
		cfg.Ranges = append(cfg.Ranges, domain.ShippingRange{
			ID:          shippingRangeIDPrefix + s.newID(),
			MinDistance: cmd.MinDistance,
			MaxDistance: cmd.MaxDistance,
			Label:       strings.TrimSpace(cmd.Label),
			Price:       cmd.Price,
		})
		return nil
	})
}

func (s *pricingConfigService) UpdateShippingRange(ctx context.Context, cmd ShippingRangeCommand) (ShippingConfig, error) {
	if err := validateShippingRange(cmd); err != nil {
		return ShippingConfig{}, err
	}
	return s.mutateShipping(ctx, func(cfg *ShippingConfig) error {
		for i := range cfg.Ranges {
			if cfg.Ranges[i].ID != cmd.RangeID {
				continue
			}
			cfg.Ranges[i].MinDistance = cmd.MinDistance
			cfg.Ranges[i].MaxDistance = cmd.MaxDistance
			cfg.Ranges[i].Label = strings.TrimSpace(cmd.Label)
			cfg.Ranges[i].Price = cmd.Price
			return nil
		}
		return fmt.Errorf("%w: distance range %s", ErrPricingConfigItemNotFound, cmd.RangeID)
	})
}

func (s *pricingConfigService) RemoveShippingRange(ctx context.Context, rangeID string) (ShippingConfig, error) {
	return s.mutateShipping(ctx, func(cfg *ShippingConfig) error {
		for i := range cfg.Ranges {
			if cfg.Ranges[i].ID != rangeID {
				continue
			}
			cfg.Ranges = append(cfg.Ranges[:i], cfg.Ranges[i+1:]...)
			return nil
		}
		return fmt.Errorf("%w: distance range %s", ErrPricingConfigItemNotFound, rangeID)
	})
}

func (s *pricingConfigService) UpdateWarehouse(ctx context.Context, cmd WarehouseCommand) (ShippingConfig, error) {
	if strings.TrimSpace(cmd.Address) == "" {
		return ShippingConfig{}, fmt.Errorf("%w: warehouse address is required", ErrPricingConfigInvalidInput)
	}
	return s.mutateShipping(ctx, func(cfg *ShippingConfig) error {
		cfg.Warehouse = domain.Warehouse{
			Address:   strings.TrimSpace(cmd.Address),
			Latitude:  cmd.Latitude,
			Longitude: cmd.Longitude,
		}
		return nil
	})
}

// MigrateShippingRanges normalizes legacy maxDistance values once at startup.
// A range whose maxDistance undercuts its own minDistance is treated as
// unlimited and nulled; read paths never mutate. Returns the number of
// ranges rewritten.
func (s *pricingConfigService) MigrateShippingRanges(ctx context.Context) (int, error) {
	if s == nil || s.repo == nil {
		return 0, ErrPricingConfigRepositoryMissing
	}

	cfg, err := s.repo.EnsureShipping(ctx, s.defaultShippingConfig())
	if err != nil {
		return 0, err
	}

	migrated := 0
	for i := range cfg.Ranges {
		r := cfg.Ranges[i]
		if r.MaxDistance != nil && *r.MaxDistance < r.MinDistance {
			cfg.Ranges[i].MaxDistance = nil
			migrated++
		}
	}
	if migrated == 0 {
		return 0, nil
	}

	cfg.UpdatedAt = s.clock()
	if _, err := s.repo.SaveShipping(ctx, cfg); err != nil {
		return 0, err
	}
	s.logger(ctx, "pricing.shipping.migrated", map[string]any{"ranges": migrated})
	return migrated, nil
}

// Signage -------------------------------------------------------------------

func (s *pricingConfigService) GetSignageConfig(ctx context.Context) (SignageConfig, error) {
	if s == nil || s.repo == nil {
		return SignageConfig{}, ErrPricingConfigRepositoryMissing
	}
	return s.repo.EnsureSignage(ctx, s.defaultSignageConfig())
}

func (s *pricingConfigService) AddSignageSize(ctx context.Context, cmd SignageSizeCommand) (SignageConfig, error) {
	if err := validateSignageSize(cmd); err != nil {
		return SignageConfig{}, err
	}
	return s.mutateSignage(ctx, func(cfg *SignageConfig) error {
		key := strings.TrimSpace(cmd.Key)
		for _, size := range cfg.Sizes {
			if size.Key == key {
				return fmt.Errorf("%w: size key %q already exists", ErrPricingConfigInvalidInput, key)
			}
		}
		cfg.Sizes = append(cfg.Sizes, domain.SignageSize{
			ID:       signageSizeIDPrefix + s.newID(),
			Key:      key,
			Label:    strings.TrimSpace(cmd.Label),
			FontSize: cmd.FontSize,
			Price:    cmd.Price,
		})
		return nil
	})
}

func (s *pricingConfigService) UpdateSignageSize(ctx context.Context, cmd SignageSizeCommand) (SignageConfig, error) {
	if err := validateSignageSize(cmd); err != nil {
		return SignageConfig{}, err
	}
	return s.mutateSignage(ctx, func(cfg *SignageConfig) error {
		for i := range cfg.Sizes {
			if cfg.Sizes[i].ID != cmd.SizeID {
				continue
			}
			cfg.Sizes[i].Key = strings.TrimSpace(cmd.Key)
			cfg.Sizes[i].Label = strings.TrimSpace(cmd.Label)
			cfg.Sizes[i].FontSize = cmd.FontSize
			cfg.Sizes[i].Price = cmd.Price
			return nil
		}
		return fmt.Errorf("%w: signage size %s", ErrPricingConfigItemNotFound, cmd.SizeID)
	})
}

func (s *pricingConfigService) RemoveSignageSize(ctx context.Context, sizeID string) (SignageConfig, error) {
	return s.mutateSignage(ctx, func(cfg *SignageConfig) error {
		for i := range cfg.Sizes {
			if cfg.Sizes[i].ID != sizeID {
				continue
			}
			cfg.Sizes = append(cfg.Sizes[:i], cfg.Sizes[i+1:]...)
			return nil
		}
		return fmt.Errorf("%w: signage size %s", ErrPricingConfigItemNotFound, sizeID)
	})
}

func (s *pricingConfigService) UpdateSignageBase(ctx context.Context, cmd SignageBaseCommand) (SignageConfig, error) {
	if cmd.WidthFt < 0.5 || cmd.HeightFt < 0.5 {
		return SignageConfig{}, fmt.Errorf("%w: background must be at least 0.5 ft per side", ErrPricingConfigInvalidInput)
	}
	if cmd.BasePrice < 0 {
		return SignageConfig{}, fmt.Errorf("%w: base price must not be negative", ErrPricingConfigInvalidInput)
	}
	return s.mutateSignage(ctx, func(cfg *SignageConfig) error {
		cfg.WidthFt = cmd.WidthFt
		cfg.HeightFt = cmd.HeightFt
		cfg.BasePrice = cmd.BasePrice
		return nil
	})
}

// Mutate helpers ------------------------------------------------------------

func (s *pricingConfigService) mutateShelving(ctx context.Context, apply func(*ShelvingConfig) error) (ShelvingConfig, error) {
	if s == nil || s.repo == nil {
		return ShelvingConfig{}, ErrPricingConfigRepositoryMissing
	}
	cfg, err := s.repo.EnsureShelving(ctx, s.defaultShelvingConfig())
	if err != nil {
		return ShelvingConfig{}, err
	}
	if err := apply(&cfg); err != nil {
		return ShelvingConfig{}, err
	}
	cfg.UpdatedAt = s.clock()
	return s.repo.SaveShelving(ctx, cfg)
}

func (s *pricingConfigService) mutateShipping(ctx context.Context, apply func(*ShippingConfig) error) (ShippingConfig, error) {
	if s == nil || s.repo == nil {
		return ShippingConfig{}, ErrPricingConfigRepositoryMissing
	}
	cfg, err := s.repo.EnsureShipping(ctx, s.defaultShippingConfig())
	if err != nil {
		return ShippingConfig{}, err
	}
	if err := apply(&cfg); err != nil {
		return ShippingConfig{}, err
	}
	cfg.UpdatedAt = s.clock()
	return s.repo.SaveShipping(ctx, cfg)
}

func (s *pricingConfigService) mutateSignage(ctx context.Context, apply func(*SignageConfig) error) (SignageConfig, error) {
	if s == nil || s.repo == nil {
		return SignageConfig{}, ErrPricingConfigRepositoryMissing
	}
	cfg, err := s.repo.EnsureSignage(ctx, s.defaultSignageConfig())
	if err != nil {
		return SignageConfig{}, err
	}
	if err := apply(&cfg); err != nil {
		return SignageConfig{}, err
	}
	cfg.UpdatedAt = s.clock()
	return s.repo.SaveSignage(ctx, cfg)
}

// Defaults ------------------------------------------------------------------

func (s *pricingConfigService) defaultShelvingConfig() ShelvingConfig {
	sizes := []struct {
		size  string
		price float64
	}{
		{`24"`, 20},
		{`34"`, 25},
		{`46"`, 25},
		{`70"`, 32},
		{`83"`, 38},
		{`94"`, 43},
	}
	tierA := make([]domain.ShelvingSize, 0, len(sizes))
	for _, entry := range sizes {
		tierA = append(tierA, domain.ShelvingSize{
			ID:         shelvingSizeIDPrefix + s.newID(),
			Size:       entry.size,
			Dimensions: fmt.Sprintf(`%s long x 5.5" deep x 0.75" thick`, entry.size),
			Price:      entry.price,
		})
	}
	return ShelvingConfig{
		TierASizes: tierA,
		TierB: domain.ShelvingTier{
			Dimensions: `43" wide x 11.5" deep x 1.5" thick (including height of front lip)`,
			Price:      29,
		},
		TierC: domain.ShelvingTier{
			Dimensions:  `75" wide x 25" deep x 1.5" thick (including height of front lip)`,
			Price:       50,
			MaxQuantity: 1,
		},
		IsActive:  true,
		UpdatedAt: s.clock(),
	}
}

func (s *pricingConfigService) defaultShippingConfig() ShippingConfig {
	ranges := []struct {
		min   float64
		max   *float64
		label string
		price float64
	}{
		{0, milesPtr(25), "0-25 miles", 35},
		{25, milesPtr(50), "25-50 miles", 45},
		{50, milesPtr(100), "50-100 miles", 60},
		{100, milesPtr(200), "100-200 miles", 100},
		{200, milesPtr(300), "200-300 miles", 170},
		{300, milesPtr(500), "300-500 miles", 250},
		{500, nil, "500+ miles", 0},
	}
	out := make([]domain.ShippingRange, 0, len(ranges))
	for _, entry := range ranges {
		out = append(out, domain.ShippingRange{
			ID:          shippingRangeIDPrefix + s.newID(),
			MinDistance: entry.min,
			MaxDistance: entry.max,
			Label:       entry.label,
			Price:       entry.price,
		})
	}
	return ShippingConfig{
		Ranges: out,
		Warehouse: domain.Warehouse{
			Address:   "2031 Via Burton Street, Suite A, USA",
			Latitude:  34.0522,
			Longitude: -118.2437,
		},
		IsActive:  true,
		UpdatedAt: s.clock(),
	}
}

func (s *pricingConfigService) defaultSignageConfig() SignageConfig {
	sizes := []struct {
		key      string
		label    string
		fontSize int
	}{
		{"small", "Small", 32},
		{"medium", "Medium", 48},
		{"large", "Large", 64},
		{"extralarge", "Extra Large", 80},
	}
	out := make([]domain.SignageSize, 0, len(sizes))
	for _, entry := range sizes {
		out = append(out, domain.SignageSize{
			ID:       signageSizeIDPrefix + s.newID(),
			Key:      entry.key,
			Label:    entry.label,
			FontSize: entry.fontSize,
			Price:    0,
		})
	}
	return SignageConfig{
		WidthFt:   4,
		HeightFt:  8,
		Sizes:     out,
		BasePrice: 0,
		IsActive:  true,
		UpdatedAt: s.clock(),
	}
}

// Validation ----------------------------------------------------------------

func validateShelvingSize(cmd ShelvingSizeCommand) error {
	if strings.TrimSpace(cmd.Size) == "" {
		return fmt.Errorf("%w: size label is required", ErrPricingConfigInvalidInput)
	}
	if cmd.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrPricingConfigInvalidInput)
	}
	return nil
}

func validateShippingRange(cmd ShippingRangeCommand) error {
	if cmd.MinDistance < 0 {
		return fmt.Errorf("%w: min distance must not be negative", ErrPricingConfigInvalidInput)
	}
	if cmd.MaxDistance != nil && *cmd.MaxDistance < cmd.MinDistance {
		return fmt.Errorf("%w: max distance must not undercut min distance", ErrPricingConfigInvalidInput)
	}
	if strings.TrimSpace(cmd.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrPricingConfigInvalidInput)
	}
	if cmd.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrPricingConfigInvalidInput)
	}
	return nil
}

func validateSignageSize(cmd SignageSizeCommand) error {
	if strings.TrimSpace(cmd.Key) == "" {
		return fmt.Errorf("%w: size key is required", ErrPricingConfigInvalidInput)
	}
	if strings.TrimSpace(cmd.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrPricingConfigInvalidInput)
	}
	if cmd.FontSize <= 0 {
		return fmt.Errorf("%w: font size must be positive", ErrPricingConfigInvalidInput)
	}
	if cmd.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrPricingConfigInvalidInput)
	}
	return nil
}

func milesPtr(v float64) *float64 {
	return &v
}
