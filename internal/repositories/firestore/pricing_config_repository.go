package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/party-rentals/api/internal/domain"
	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
)

const (
	pricingConfigsCollection = "pricingConfigs"

	shelvingConfigKey = "shelving"
	shippingConfigKey = "shipping"
	signageConfigKey  = "signage"
)

// PricingConfigRepository keeps the three singleton pricing documents under
// fixed document IDs. The fixed key makes duplicate singletons impossible
// regardless of how many callers race on first access.
type PricingConfigRepository struct {
	provider *pfirestore.Provider
	shelving *pfirestore.BaseRepository[shelvingConfigDocument]
	shipping *pfirestore.BaseRepository[shippingConfigDocument]
	signage  *pfirestore.BaseRepository[signageConfigDocument]
}

func NewPricingConfigRepository(provider *pfirestore.Provider) (*PricingConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("pricing config repository requires firestore provider")
	}
	return &PricingConfigRepository{
		provider: provider,
		shelving: pfirestore.NewBaseRepository[shelvingConfigDocument](provider, pricingConfigsCollection, nil, nil),
		shipping: pfirestore.NewBaseRepository[shippingConfigDocument](provider, pricingConfigsCollection, nil, nil),
		signage:  pfirestore.NewBaseRepository[signageConfigDocument](provider, pricingConfigsCollection, nil, nil),
	}, nil
}

// ensureSingleton runs a create-if-absent transaction against the fixed key.
// found reports whether the document already existed.
func (r *PricingConfigRepository) ensureSingleton(ctx context.Context, key string, defaults any, load func(*firestore.DocumentSnapshot) error) error {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	ref := client.Collection(pricingConfigsCollection).Doc(key)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err == nil {
			return load(snap)
		}
		if status.Code(err) != codes.NotFound {
			return err
		}
		return tx.Create(ref, defaults)
	})
}

func (r *PricingConfigRepository) EnsureShelving(ctx context.Context, defaults domain.ShelvingConfig) (domain.ShelvingConfig, error) {
	if r == nil || r.provider == nil {
		return domain.ShelvingConfig{}, errors.New("pricing config repository not initialised")
	}
	doc := newShelvingConfigDocument(defaults)
	stored := doc
	err := r.ensureSingleton(ctx, shelvingConfigKey, doc, func(snap *firestore.DocumentSnapshot) error {
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode shelving config: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ShelvingConfig{}, pfirestore.WrapError("pricingConfigs.shelving", err)
	}
	return stored.toDomain(shelvingConfigKey), nil
}

func (r *PricingConfigRepository) SaveShelving(ctx context.Context, cfg domain.ShelvingConfig) (domain.ShelvingConfig, error) {
	if r == nil || r.shelving == nil {
		return domain.ShelvingConfig{}, errors.New("pricing config repository not initialised")
	}
	doc := newShelvingConfigDocument(cfg)
	if _, err := r.shelving.Set(ctx, shelvingConfigKey, doc); err != nil {
		return domain.ShelvingConfig{}, err
	}
	return doc.toDomain(shelvingConfigKey), nil
}

func (r *PricingConfigRepository) EnsureShipping(ctx context.Context, defaults domain.ShippingConfig) (domain.ShippingConfig, error) {
	if r == nil || r.provider == nil {
		return domain.ShippingConfig{}, errors.New("pricing config repository not initialised")
	}
	doc := newShippingConfigDocument(defaults)
	stored := doc
	err := r.ensureSingleton(ctx, shippingConfigKey, doc, func(snap *firestore.DocumentSnapshot) error {
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode shipping config: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ShippingConfig{}, pfirestore.WrapError("pricingConfigs.shipping", err)
	}
	return stored.toDomain(shippingConfigKey), nil
}

func (r *PricingConfigRepository) SaveShipping(ctx context.Context, cfg domain.ShippingConfig) (domain.ShippingConfig, error) {
	if r == nil || r.shipping == nil {
		return domain.ShippingConfig{}, errors.New("pricing config repository not initialised")
	}
	doc := newShippingConfigDocument(cfg)
	if _, err := r.shipping.Set(ctx, shippingConfigKey, doc); err != nil {
		return domain.ShippingConfig{}, err
	}
	return doc.toDomain(shippingConfigKey), nil
}

func (r *PricingConfigRepository) EnsureSignage(ctx context.Context, defaults domain.SignageConfig) (domain.SignageConfig, error) {
	if r == nil || r.provider == nil {
		return domain.SignageConfig{}, errors.New("pricing config repository not initialised")
	}
	doc := newSignageConfigDocument(defaults)
	stored := doc
	err := r.ensureSingleton(ctx, signageConfigKey, doc, func(snap *firestore.DocumentSnapshot) error {
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode signage config: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.SignageConfig{}, pfirestore.WrapError("pricingConfigs.signage", err)
	}
	return stored.toDomain(signageConfigKey), nil
}

func (r *PricingConfigRepository) SaveSignage(ctx context.Context, cfg domain.SignageConfig) (domain.SignageConfig, error) {
	if r == nil || r.signage == nil {
		return domain.SignageConfig{}, errors.New("pricing config repository not initialised")
	}
	doc := newSignageConfigDocument(cfg)
	if _, err := r.signage.Set(ctx, signageConfigKey, doc); err != nil {
		return domain.SignageConfig{}, err
	}
	return doc.toDomain(signageConfigKey), nil
}

// Document structures --------------------------------------------------------

type shelvingSizeDocument struct {
	ID         string  `firestore:"id"`
	Size       string  `firestore:"size"`
	Dimensions string  `firestore:"dimensions"`
	Price      float64 `firestore:"price"`
}

type shelvingTierDocument struct {
	Dimensions  string  `firestore:"dimensions"`
	Price       float64 `firestore:"price"`
	MaxQuantity int     `firestore:"maxQuantity,omitempty"`
}

type shelvingConfigDocument struct {
	TierASizes []shelvingSizeDocument `firestore:"tierASizes"`
	TierB      shelvingTierDocument   `firestore:"tierB"`
	TierC      shelvingTierDocument   `firestore:"tierC"`
	IsActive   bool                   `firestore:"isActive"`
	UpdatedAt  time.Time              `firestore:"updatedAt"`
}

func newShelvingConfigDocument(cfg domain.ShelvingConfig) shelvingConfigDocument {
	sizes := make([]shelvingSizeDocument, len(cfg.TierASizes))
	for i, size := range cfg.TierASizes {
		sizes[i] = shelvingSizeDocument{
			ID:         size.ID,
			Size:       size.Size,
			Dimensions: size.Dimensions,
			Price:      size.Price,
		}
	}
	return shelvingConfigDocument{
		TierASizes: sizes,
		TierB: shelvingTierDocument{
			Dimensions:  cfg.TierB.Dimensions,
			Price:       cfg.TierB.Price,
			MaxQuantity: cfg.TierB.MaxQuantity,
		},
		TierC: shelvingTierDocument{
			Dimensions:  cfg.TierC.Dimensions,
			Price:       cfg.TierC.Price,
			MaxQuantity: cfg.TierC.MaxQuantity,
		},
		IsActive:  cfg.IsActive,
		UpdatedAt: cfg.UpdatedAt.UTC(),
	}
}

func (d shelvingConfigDocument) toDomain(id string) domain.ShelvingConfig {
	sizes := make([]domain.ShelvingSize, len(d.TierASizes))
	for i, size := range d.TierASizes {
		sizes[i] = domain.ShelvingSize{
			ID:         size.ID,
			Size:       size.Size,
			Dimensions: size.Dimensions,
			Price:      size.Price,
		}
	}
	return domain.ShelvingConfig{
		ID:         id,
		TierASizes: sizes,
		TierB: domain.ShelvingTier{
			Dimensions:  d.TierB.Dimensions,
			Price:       d.TierB.Price,
			MaxQuantity: d.TierB.MaxQuantity,
		},
		TierC: domain.ShelvingTier{
			Dimensions:  d.TierC.Dimensions,
			Price:       d.TierC.Price,
			MaxQuantity: d.TierC.MaxQuantity,
		},
		IsActive:  d.IsActive,
		UpdatedAt: d.UpdatedAt,
	}
}

type shippingRangeDocument struct {
	ID          string   `firestore:"id"`
	MinDistance float64  `firestore:"minDistance"`
	MaxDistance *float64 `firestore:"maxDistance"`
	Label       string   `firestore:"label"`
	Price       float64  `firestore:"price"`
}

type warehouseDocument struct {
	Address   string  `firestore:"address"`
	Latitude  float64 `firestore:"lat"`
	Longitude float64 `firestore:"lng"`
}

type shippingConfigDocument struct {
	Ranges    []shippingRangeDocument `firestore:"distanceRanges"`
	Warehouse warehouseDocument       `firestore:"warehouse"`
	IsActive  bool                    `firestore:"isActive"`
	UpdatedAt time.Time               `firestore:"updatedAt"`
}

func newShippingConfigDocument(cfg domain.ShippingConfig) shippingConfigDocument {
	ranges := make([]shippingRangeDocument, len(cfg.Ranges))
	for i, rg := range cfg.Ranges {
		ranges[i] = shippingRangeDocument{
			ID:          rg.ID,
			MinDistance: rg.MinDistance,
			MaxDistance: rg.MaxDistance,
			Label:       rg.Label,
			Price:       rg.Price,
		}
	}
	return shippingConfigDocument{
		Ranges: ranges,
		Warehouse: warehouseDocument{
			Address:   cfg.Warehouse.Address,
			Latitude:  cfg.Warehouse.Latitude,
			Longitude: cfg.Warehouse.Longitude,
		},
		IsActive:  cfg.IsActive,
		UpdatedAt: cfg.UpdatedAt.UTC(),
	}
}

func (d shippingConfigDocument) toDomain(id string) domain.ShippingConfig {
	ranges := make([]domain.ShippingRange, len(d.Ranges))
	for i, rg := range d.Ranges {
		ranges[i] = domain.ShippingRange{
			ID:          rg.ID,
			MinDistance: rg.MinDistance,
			MaxDistance: rg.MaxDistance,
			Label:       rg.Label,
			Price:       rg.Price,
		}
	}
	return domain.ShippingConfig{
		ID:     id,
		Ranges: ranges,
		Warehouse: domain.Warehouse{
			Address:   d.Warehouse.Address,
			Latitude:  d.Warehouse.Latitude,
			Longitude: d.Warehouse.Longitude,
		},
		IsActive:  d.IsActive,
		UpdatedAt: d.UpdatedAt,
	}
}

type signageSizeDocument struct {
	ID       string  `firestore:"id"`
	Key      string  `firestore:"key"`
	Label    string  `firestore:"label"`
	FontSize int     `firestore:"fontSize"`
	Price    float64 `firestore:"price"`
}

type signageConfigDocument struct {
	WidthFt   float64               `firestore:"widthFt"`
	HeightFt  float64               `firestore:"heightFt"`
	Sizes     []signageSizeDocument `firestore:"sizes"`
	BasePrice float64               `firestore:"basePrice"`
	IsActive  bool                  `firestore:"isActive"`
	UpdatedAt time.Time             `firestore:"updatedAt"`
}

func newSignageConfigDocument(cfg domain.SignageConfig) signageConfigDocument {
	sizes := make([]signageSizeDocument, len(cfg.Sizes))
	for i, size := range cfg.Sizes {
		sizes[i] = signageSizeDocument{
			ID:       size.ID,
			Key:      size.Key,
			Label:    size.Label,
			FontSize: size.FontSize,
			Price:    size.Price,
		}
	}
	return signageConfigDocument{
		WidthFt:   cfg.WidthFt,
		HeightFt:  cfg.HeightFt,
		Sizes:     sizes,
		BasePrice: cfg.BasePrice,
		IsActive:  cfg.IsActive,
		UpdatedAt: cfg.UpdatedAt.UTC(),
	}
}

func (d signageConfigDocument) toDomain(id string) domain.SignageConfig {
	sizes := make([]domain.SignageSize, len(d.Sizes))
	for i, size := range d.Sizes {
		sizes[i] = domain.SignageSize{
			ID:       size.ID,
			Key:      size.Key,
			Label:    size.Label,
			FontSize: size.FontSize,
			Price:    size.Price,
		}
	}
	return domain.SignageConfig{
		ID:        id,
		WidthFt:   d.WidthFt,
		HeightFt:  d.HeightFt,
		Sizes:     sizes,
		BasePrice: d.BasePrice,
		IsActive:  d.IsActive,
		UpdatedAt: d.UpdatedAt,
	}
}
