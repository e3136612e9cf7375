package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/repositories"
)

const (
	productIDPrefix   = "prd_"
	categoryIDPrefix  = "cat_"
	attributeIDPrefix = "attr_"
	optionIDPrefix    = "opt_"
)

var (
	// ErrCatalogRepositoryMissing indicates a catalog repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogInvalidInput signals invalid product or category data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product or category does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict indicates a duplicate category name or concurrent edit.
	ErrCatalogConflict = errors.New("catalog: conflict")
)

// CatalogServiceDeps bundles dependencies for the catalog service.
type CatalogServiceDeps struct {
	Products   repositories.ProductRepository
	Categories repositories.CategoryRepository
	// Attributes is optional; attribute operations fail with
	// ErrCatalogRepositoryMissing when it is absent.
	Attributes  repositories.AttributeRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	attributes repositories.AttributeRepository
	clock      func() time.Time
	newID      func() string
	sanitizer  *bluemonday.Policy
}

// NewCatalogService wires a CatalogService backed by the provided repositories.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, fmt.Errorf("%w: products", ErrCatalogRepositoryMissing)
	}
	if deps.Categories == nil {
		return nil, fmt.Errorf("%w: categories", ErrCatalogRepositoryMissing)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &catalogService{
		products:   deps.Products,
		categories: deps.Categories,
		attributes: deps.Attributes,
		clock:      func() time.Time { return clock().UTC() },
		newID:      idGen,
		sanitizer:  bluemonday.StrictPolicy(),
	}, nil
}

// Products ------------------------------------------------------------------

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrCatalogRepositoryMissing
	}

	product, err := s.normalizeProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}

	now := s.clock()
	product.ID = productIDPrefix + s.newID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrCatalogRepositoryMissing
	}
	if strings.TrimSpace(cmd.Product.ID) == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	existing, err := s.products.FindByID(ctx, cmd.Product.ID)
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}

	product, err := s.normalizeProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}

	// Inventory and rental calendars only move through the order lifecycle.
	product.AvailabilityCount = existing.AvailabilityCount
	product.BlockedDates = existing.BlockedDates
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s == nil || s.products == nil {
		return ErrCatalogRepositoryMissing
	}
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrCatalogRepositoryMissing
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	if s == nil || s.products == nil {
		return domain.CursorPage[Product]{}, ErrCatalogRepositoryMissing
	}
	page, err := s.products.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// Categories ----------------------------------------------------------------

func (s *catalogService) CreateCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error) {
	if s == nil || s.categories == nil {
		return Category{}, ErrCatalogRepositoryMissing
	}

	category := cmd.Category
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", ErrCatalogInvalidInput)
	}

	now := s.clock()
	category.ID = categoryIDPrefix + s.newID()
	category.Slug = slugify(category.Name)
	category.CreatedAt = now
	category.UpdatedAt = now

	if err := s.categories.Insert(ctx, category); err != nil {
		return Category{}, s.mapRepositoryError(err)
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error) {
	if s == nil || s.categories == nil {
		return Category{}, ErrCatalogRepositoryMissing
	}
	if strings.TrimSpace(cmd.Category.ID) == "" {
		return Category{}, fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}

	existing, err := s.categories.FindByID(ctx, cmd.Category.ID)
	if err != nil {
		return Category{}, s.mapRepositoryError(err)
	}

	category := cmd.Category
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, fmt.Errorf("%w: category name is required", ErrCatalogInvalidInput)
	}
	category.Slug = slugify(category.Name)
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = s.clock()

	if err := s.categories.Update(ctx, category); err != nil {
		return Category{}, s.mapRepositoryError(err)
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	if s == nil || s.categories == nil {
		return ErrCatalogRepositoryMissing
	}
	if strings.TrimSpace(categoryID) == "" {
		return fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}
	if err := s.categories.Delete(ctx, categoryID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	if s == nil || s.categories == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return categories, nil
}

// Attributes -----------------------------------------------------------------

func (s *catalogService) CreateAttribute(ctx context.Context, cmd CreateAttributeCommand) (Attribute, error) {
	if s == nil || s.attributes == nil {
		return Attribute{}, fmt.Errorf("%w: attributes", ErrCatalogRepositoryMissing)
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Attribute{}, fmt.Errorf("%w: attribute name is required", ErrCatalogInvalidInput)
	}
	attrType := cmd.Type
	if attrType == "" {
		attrType = domain.AttributeTypeMulti
	}
	switch attrType {
	case domain.AttributeTypeSelect, domain.AttributeTypeMulti, domain.AttributeTypeColor, domain.AttributeTypeAddon:
	default:
		return Attribute{}, fmt.Errorf("%w: unknown attribute type %q", ErrCatalogInvalidInput, attrType)
	}

	now := s.clock()
	attribute := Attribute{
		ID:        attributeIDPrefix + s.newID(),
		Name:      name,
		Slug:      slugify(name),
		Type:      attrType,
		Required:  cmd.Required,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.attributes.Insert(ctx, attribute); err != nil {
		return Attribute{}, s.mapRepositoryError(err)
	}
	return attribute, nil
}

func (s *catalogService) DeleteAttribute(ctx context.Context, attributeID string) error {
	if s == nil || s.attributes == nil {
		return fmt.Errorf("%w: attributes", ErrCatalogRepositoryMissing)
	}
	if strings.TrimSpace(attributeID) == "" {
		return fmt.Errorf("%w: attribute id is required", ErrCatalogInvalidInput)
	}
	if err := s.attributes.Delete(ctx, attributeID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *catalogService) ListAttributes(ctx context.Context) ([]Attribute, error) {
	if s == nil || s.attributes == nil {
		return nil, fmt.Errorf("%w: attributes", ErrCatalogRepositoryMissing)
	}
	attributes, err := s.attributes.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return attributes, nil
}

// AddAttributeOption appends an option to a group. Labels are unique within
// the group regardless of case. Hex only sticks on color groups and price
// deltas only on addon groups; a tier is kept only for shelving addon options.
func (s *catalogService) AddAttributeOption(ctx context.Context, cmd AddAttributeOptionCommand) (Attribute, error) {
	if s == nil || s.attributes == nil {
		return Attribute{}, fmt.Errorf("%w: attributes", ErrCatalogRepositoryMissing)
	}
	if strings.TrimSpace(cmd.AttributeID) == "" {
		return Attribute{}, fmt.Errorf("%w: attribute id is required", ErrCatalogInvalidInput)
	}
	label := strings.TrimSpace(cmd.Label)
	if label == "" {
		return Attribute{}, fmt.Errorf("%w: option label is required", ErrCatalogInvalidInput)
	}

	attribute, err := s.attributes.FindByID(ctx, cmd.AttributeID)
	if err != nil {
		return Attribute{}, s.mapRepositoryError(err)
	}

	for _, opt := range attribute.Options {
		if strings.EqualFold(strings.TrimSpace(opt.Label), label) {
			return Attribute{}, fmt.Errorf("%w: option %q already exists in this group", ErrCatalogConflict, label)
		}
	}

	now := s.clock()
	option := AttributeOption{
		ID:        optionIDPrefix + s.newID(),
		Label:     label,
		Value:     slugify(label),
		IsActive:  true,
		SortOrder: cmd.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if attribute.Type == domain.AttributeTypeColor {
		option.Hex = strings.TrimSpace(cmd.Hex)
		if option.Hex == "" {
			option.Hex = "#000000"
		}
	}
	if attribute.Type == domain.AttributeTypeAddon {
		option.PriceDelta = cmd.PriceDelta
		if isShelvingLabel(label) {
			option.Tier = strings.TrimSpace(cmd.Tier)
		}
	}

	attribute.Options = append(attribute.Options, option)
	attribute.UpdatedAt = now

	if err := s.attributes.Update(ctx, attribute); err != nil {
		return Attribute{}, s.mapRepositoryError(err)
	}
	return attribute, nil
}

func (s *catalogService) RemoveAttributeOption(ctx context.Context, attributeID, optionID string) (Attribute, error) {
	if s == nil || s.attributes == nil {
		return Attribute{}, fmt.Errorf("%w: attributes", ErrCatalogRepositoryMissing)
	}
	if strings.TrimSpace(attributeID) == "" {
		return Attribute{}, fmt.Errorf("%w: attribute id is required", ErrCatalogInvalidInput)
	}
	optionID = strings.TrimSpace(optionID)
	if optionID == "" {
		return Attribute{}, fmt.Errorf("%w: option id is required", ErrCatalogInvalidInput)
	}

	attribute, err := s.attributes.FindByID(ctx, attributeID)
	if err != nil {
		return Attribute{}, s.mapRepositoryError(err)
	}

	kept := attribute.Options[:0:0]
	for _, opt := range attribute.Options {
		if opt.ID == optionID {
			continue
		}
		kept = append(kept, opt)
	}
	attribute.Options = kept
	attribute.UpdatedAt = s.clock()

	if err := s.attributes.Update(ctx, attribute); err != nil {
		return Attribute{}, s.mapRepositoryError(err)
	}
	return attribute, nil
}

// Helpers -------------------------------------------------------------------

func (s *catalogService) normalizeProduct(product Product) (Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	}
	switch product.ProductType {
	case domain.ProductTypeRental, domain.ProductTypePurchase:
	default:
		return Product{}, fmt.Errorf("%w: unknown product type %q", ErrCatalogInvalidInput, product.ProductType)
	}
	if product.Price < 0 {
		return Product{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}
	if product.AvailabilityCount < 0 {
		return Product{}, fmt.Errorf("%w: availability count must not be negative", ErrCatalogInvalidInput)
	}
	product.Description = strings.TrimSpace(s.sanitizer.Sanitize(product.Description))
	product.CategoryID = strings.TrimSpace(product.CategoryID)
	return product, nil
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
		}
	}
	return err
}

func isShelvingLabel(label string) bool {
	lower := strings.ToLower(label)
	return strings.Contains(lower, "shelving") || strings.Contains(lower, "shelf")
}

func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
