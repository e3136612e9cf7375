package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/party-rentals/api/internal/domain"
	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
)

const attributesCollection = "attributes"

type AttributeRepository struct {
	provider   *pfirestore.Provider
	attributes *pfirestore.BaseRepository[attributeDocument]
}

func NewAttributeRepository(provider *pfirestore.Provider) (*AttributeRepository, error) {
	if provider == nil {
		return nil, errors.New("attribute repository requires firestore provider")
	}
	return &AttributeRepository{
		provider:   provider,
		attributes: pfirestore.NewBaseRepository[attributeDocument](provider, attributesCollection, nil, nil),
	}, nil
}

// Insert creates an attribute group, failing with a conflict when another
// group already claims the slug.
func (r *AttributeRepository) Insert(ctx context.Context, attribute domain.Attribute) error {
	if r == nil || r.provider == nil {
		return errors.New("attribute repository not initialised")
	}
	if strings.TrimSpace(attribute.ID) == "" {
		return errors.New("attribute insert: id is required")
	}
	if strings.TrimSpace(attribute.Slug) == "" {
		return errors.New("attribute insert: slug is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		existing, err := tx.Documents(client.Collection(attributesCollection).Where("slug", "==", attribute.Slug).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return status.Errorf(codes.AlreadyExists, "attribute group %s already exists", attribute.Name)
		}
		ref, err := r.attributes.DocumentRef(ctx, attribute.ID)
		if err != nil {
			return err
		}
		return tx.Create(ref, newAttributeDocument(attribute))
	})
	if err != nil {
		return pfirestore.WrapError("attributes.insert", err)
	}
	return nil
}

func (r *AttributeRepository) Update(ctx context.Context, attribute domain.Attribute) error {
	if r == nil || r.attributes == nil {
		return errors.New("attribute repository not initialised")
	}
	if strings.TrimSpace(attribute.ID) == "" {
		return errors.New("attribute update: id is required")
	}
	_, err := r.attributes.Set(ctx, attribute.ID, newAttributeDocument(attribute))
	return err
}

func (r *AttributeRepository) Delete(ctx context.Context, attributeID string) error {
	if r == nil || r.attributes == nil {
		return errors.New("attribute repository not initialised")
	}
	attributeID = strings.TrimSpace(attributeID)
	if attributeID == "" {
		return errors.New("attribute delete: id is required")
	}
	ref, err := r.attributes.DocumentRef(ctx, attributeID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("attributes.delete", err)
	}
	return nil
}

func (r *AttributeRepository) FindByID(ctx context.Context, attributeID string) (domain.Attribute, error) {
	if r == nil || r.attributes == nil {
		return domain.Attribute{}, errors.New("attribute repository not initialised")
	}
	attributeID = strings.TrimSpace(attributeID)
	if attributeID == "" {
		return domain.Attribute{}, errors.New("attribute find: id is required")
	}
	doc, err := r.attributes.Get(ctx, attributeID)
	if err != nil {
		return domain.Attribute{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns every attribute group, newest first.
func (r *AttributeRepository) List(ctx context.Context) ([]domain.Attribute, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("attribute repository not initialised")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("attributes.list", err)
	}

	iter := client.Collection(attributesCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var attributes []domain.Attribute
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("attributes.list", err)
		}
		var doc attributeDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode attribute %s: %w", snap.Ref.ID, err)
		}
		attributes = append(attributes, doc.toDomain(snap.Ref.ID))
	}
	return attributes, nil
}

type attributeDocument struct {
	Name      string                    `firestore:"name"`
	Slug      string                    `firestore:"slug"`
	Type      string                    `firestore:"type"`
	Required  bool                      `firestore:"required"`
	Options   []attributeOptionDocument `firestore:"options"`
	CreatedAt time.Time                 `firestore:"createdAt"`
	UpdatedAt time.Time                 `firestore:"updatedAt"`
}

type attributeOptionDocument struct {
	ID         string    `firestore:"id"`
	Label      string    `firestore:"label"`
	Value      string    `firestore:"value,omitempty"`
	Hex        string    `firestore:"hex,omitempty"`
	PriceDelta float64   `firestore:"priceDelta"`
	Tier       string    `firestore:"tier,omitempty"`
	IsActive   bool      `firestore:"isActive"`
	SortOrder  int       `firestore:"sortOrder"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func newAttributeDocument(attribute domain.Attribute) attributeDocument {
	options := make([]attributeOptionDocument, len(attribute.Options))
	for i, opt := range attribute.Options {
		options[i] = attributeOptionDocument{
			ID:         opt.ID,
			Label:      opt.Label,
			Value:      opt.Value,
			Hex:        opt.Hex,
			PriceDelta: opt.PriceDelta,
			Tier:       opt.Tier,
			IsActive:   opt.IsActive,
			SortOrder:  opt.SortOrder,
			CreatedAt:  opt.CreatedAt.UTC(),
			UpdatedAt:  opt.UpdatedAt.UTC(),
		}
	}
	return attributeDocument{
		Name:      attribute.Name,
		Slug:      attribute.Slug,
		Type:      string(attribute.Type),
		Required:  attribute.Required,
		Options:   options,
		CreatedAt: attribute.CreatedAt.UTC(),
		UpdatedAt: attribute.UpdatedAt.UTC(),
	}
}

func (d attributeDocument) toDomain(id string) domain.Attribute {
	options := make([]domain.AttributeOption, len(d.Options))
	for i, opt := range d.Options {
		options[i] = domain.AttributeOption{
			ID:         opt.ID,
			Label:      opt.Label,
			Value:      opt.Value,
			Hex:        opt.Hex,
			PriceDelta: opt.PriceDelta,
			Tier:       opt.Tier,
			IsActive:   opt.IsActive,
			SortOrder:  opt.SortOrder,
			CreatedAt:  opt.CreatedAt,
			UpdatedAt:  opt.UpdatedAt,
		}
	}
	return domain.Attribute{
		ID:        id,
		Name:      d.Name,
		Slug:      d.Slug,
		Type:      domain.AttributeType(d.Type),
		Required:  d.Required,
		Options:   options,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
