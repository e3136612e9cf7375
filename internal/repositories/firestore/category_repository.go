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

const categoriesCollection = "categories"

type CategoryRepository struct {
	provider   *pfirestore.Provider
	categories *pfirestore.BaseRepository[categoryDocument]
}

func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		provider:   provider,
		categories: pfirestore.NewBaseRepository[categoryDocument](provider, categoriesCollection, nil, nil),
	}, nil
}

// Insert creates a category, failing with a conflict when the name is taken.
// Uniqueness is checked on the slug so "Party Tents" and "party tents"
// collide rather than coexisting.
func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) error {
	if r == nil || r.provider == nil {
		return errors.New("category repository not initialised")
	}
	if strings.TrimSpace(category.ID) == "" {
		return errors.New("category insert: id is required")
	}
	if strings.TrimSpace(category.Slug) == "" {
		return errors.New("category insert: slug is required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		existing, err := tx.Documents(client.Collection(categoriesCollection).Where("slug", "==", category.Slug).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return status.Errorf(codes.AlreadyExists, "category %s already exists", category.Name)
		}
		ref, err := r.categories.DocumentRef(ctx, category.ID)
		if err != nil {
			return err
		}
		return tx.Create(ref, newCategoryDocument(category))
	})
	if err != nil {
		return pfirestore.WrapError("categories.insert", err)
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, category domain.Category) error {
	if r == nil || r.categories == nil {
		return errors.New("category repository not initialised")
	}
	if strings.TrimSpace(category.ID) == "" {
		return errors.New("category update: id is required")
	}
	_, err := r.categories.Set(ctx, category.ID, newCategoryDocument(category))
	return err
}

func (r *CategoryRepository) Delete(ctx context.Context, categoryID string) error {
	if r == nil || r.categories == nil {
		return errors.New("category repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return errors.New("category delete: id is required")
	}
	ref, err := r.categories.DocumentRef(ctx, categoryID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("categories.delete", err)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.Category{}, errors.New("category find: id is required")
	}
	doc, err := r.categories.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (domain.Category, error) {
	if r == nil || r.provider == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, errors.New("category find: name is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Category{}, pfirestore.WrapError("categories.findByName", err)
	}

	iter := client.Collection(categoriesCollection).Where("name", "==", name).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Category{}, pfirestore.WrapError("categories.findByName", status.Errorf(codes.NotFound, "category %s not found", name))
	}
	if err != nil {
		return domain.Category{}, pfirestore.WrapError("categories.findByName", err)
	}
	var doc categoryDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Category{}, fmt.Errorf("decode category %s: %w", name, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("category repository not initialised")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("categories.list", err)
	}

	iter := client.Collection(categoriesCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var categories []domain.Category
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("categories.list", err)
		}
		var doc categoryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode category %s: %w", snap.Ref.ID, err)
		}
		categories = append(categories, doc.toDomain(snap.Ref.ID))
	}
	return categories, nil
}

type categoryDocument struct {
	Name      string    `firestore:"name"`
	Slug      string    `firestore:"slug,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newCategoryDocument(category domain.Category) categoryDocument {
	return categoryDocument{
		Name:      category.Name,
		Slug:      category.Slug,
		CreatedAt: category.CreatedAt.UTC(),
		UpdatedAt: category.UpdatedAt.UTC(),
	}
}

func (d categoryDocument) toDomain(id string) domain.Category {
	return domain.Category{
		ID:        id,
		Name:      d.Name,
		Slug:      d.Slug,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
