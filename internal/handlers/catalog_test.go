package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/services"
)

type stubCatalogService struct {
	createProductFunc  func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	updateProductFunc  func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	deleteProductFunc  func(ctx context.Context, productID string) error
	getProductFunc     func(ctx context.Context, productID string) (services.Product, error)
	listProductsFunc   func(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error)
	createCategoryFunc func(ctx context.Context, cmd services.UpsertCategoryCommand) (services.Category, error)
	updateCategoryFunc func(ctx context.Context, cmd services.UpsertCategoryCommand) (services.Category, error)
	deleteCategoryFunc func(ctx context.Context, categoryID string) error
	listCategoriesFunc func(ctx context.Context) ([]services.Category, error)
	createAttrFunc     func(ctx context.Context, cmd services.CreateAttributeCommand) (services.Attribute, error)
	deleteAttrFunc     func(ctx context.Context, attributeID string) error
	listAttrsFunc      func(ctx context.Context) ([]services.Attribute, error)
	addOptionFunc      func(ctx context.Context, cmd services.AddAttributeOptionCommand) (services.Attribute, error)
	removeOptionFunc   func(ctx context.Context, attributeID, optionID string) (services.Attribute, error)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.createProductFunc == nil {
		return services.Product{}, nil
	}
	return s.createProductFunc(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.updateProductFunc == nil {
		return services.Product{}, nil
	}
	return s.updateProductFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteProductFunc == nil {
		return nil
	}
	return s.deleteProductFunc(ctx, productID)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getProductFunc == nil {
		return services.Product{}, nil
	}
	return s.getProductFunc(ctx, productID)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error) {
	if s.listProductsFunc == nil {
		return domain.CursorPage[services.Product]{}, nil
	}
	return s.listProductsFunc(ctx, filter)
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, cmd services.UpsertCategoryCommand) (services.Category, error) {
	if s.createCategoryFunc == nil {
		return services.Category{}, nil
	}
	return s.createCategoryFunc(ctx, cmd)
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, cmd services.UpsertCategoryCommand) (services.Category, error) {
	if s.updateCategoryFunc == nil {
		return services.Category{}, nil
	}
	return s.updateCategoryFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	if s.deleteCategoryFunc == nil {
		return nil
	}
	return s.deleteCategoryFunc(ctx, categoryID)
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]services.Category, error) {
	if s.listCategoriesFunc == nil {
		return nil, nil
	}
	return s.listCategoriesFunc(ctx)
}

func (s *stubCatalogService) CreateAttribute(ctx context.Context, cmd services.CreateAttributeCommand) (services.Attribute, error) {
	if s.createAttrFunc == nil {
		return services.Attribute{}, nil
	}
	return s.createAttrFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteAttribute(ctx context.Context, attributeID string) error {
	if s.deleteAttrFunc == nil {
		return nil
	}
	return s.deleteAttrFunc(ctx, attributeID)
}

func (s *stubCatalogService) ListAttributes(ctx context.Context) ([]services.Attribute, error) {
	if s.listAttrsFunc == nil {
		return nil, nil
	}
	return s.listAttrsFunc(ctx)
}

func (s *stubCatalogService) AddAttributeOption(ctx context.Context, cmd services.AddAttributeOptionCommand) (services.Attribute, error) {
	if s.addOptionFunc == nil {
		return services.Attribute{}, nil
	}
	return s.addOptionFunc(ctx, cmd)
}

func (s *stubCatalogService) RemoveAttributeOption(ctx context.Context, attributeID, optionID string) (services.Attribute, error) {
	if s.removeOptionFunc == nil {
		return services.Attribute{}, nil
	}
	return s.removeOptionFunc(ctx, attributeID, optionID)
}

var _ services.CatalogService = (*stubCatalogService)(nil)

func TestCatalogHandlersListProductsForwardsFilters(t *testing.T) {
	router := newTestRouter()
	var captured services.ProductListFilter
	service := &stubCatalogService{
		listProductsFunc: func(ctx context.Context, filter services.ProductListFilter) (domain.CursorPage[services.Product], error) {
			captured = filter
			return domain.CursorPage[services.Product]{
				Items: []services.Product{{
					ID:                "prd_1",
					Name:              "Party Tent",
					ProductType:       domain.ProductTypeRental,
					Price:             411.5,
					AvailabilityCount: 3,
					Active:            true,
				}},
			}, nil
		},
	}
	NewCatalogHandlers(service).Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/products?category=cat_1&type=rental&page_size=10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CategoryID == nil || *captured.CategoryID != "cat_1" {
		t.Fatalf("expected category filter, got %#v", captured.CategoryID)
	}
	if captured.ProductType == nil || *captured.ProductType != "rental" {
		t.Fatalf("expected product type filter, got %#v", captured.ProductType)
	}
	if !captured.ActiveOnly {
		t.Fatal("expected public listing to default to active products only")
	}

	var resp productListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Name != "Party Tent" {
		t.Fatalf("expected product in response, got %#v", resp.Items)
	}
}

func TestCatalogHandlersGetProductNotFound(t *testing.T) {
	router := newTestRouter()
	service := &stubCatalogService{
		getProductFunc: func(context.Context, string) (services.Product, error) {
			return services.Product{}, services.ErrCatalogNotFound
		},
	}
	NewCatalogHandlers(service).Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/products/prd_missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCatalogHandlersCreateProduct(t *testing.T) {
	router := newTestRouter()
	var captured services.UpsertProductCommand
	service := &stubCatalogService{
		createProductFunc: func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
			captured = cmd
			product := cmd.Product
			product.ID = "prd_1"
			return product, nil
		},
	}
	NewCatalogHandlers(service).AdminRoutes(router)

	payload := `{"name":"Bounce Castle","product_type":"Rental","category_id":"cat_1","price":250,"availability_count":4,"tags":["outdoor"]}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Product.ProductType != domain.ProductTypeRental {
		t.Fatalf("expected product type normalised, got %s", captured.Product.ProductType)
	}
	if !captured.Product.Active {
		t.Fatal("expected new products to default to active")
	}
}

func TestCatalogHandlersCreateCategoryConflict(t *testing.T) {
	router := newTestRouter()
	service := &stubCatalogService{
		createCategoryFunc: func(context.Context, services.UpsertCategoryCommand) (services.Category, error) {
			return services.Category{}, services.ErrCatalogConflict
		},
	}
	NewCatalogHandlers(service).AdminRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString(`{"name":"Tents"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestCatalogHandlersListCategories(t *testing.T) {
	router := newTestRouter()
	service := &stubCatalogService{
		listCategoriesFunc: func(context.Context) ([]services.Category, error) {
			return []services.Category{
				{ID: "cat_1", Name: "Tents", Slug: "tents"},
				{ID: "cat_2", Name: "Table & Chairs", Slug: "table-chairs"},
			}, nil
		},
	}
	NewCatalogHandlers(service).Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp categoryListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[1].Slug != "table-chairs" {
		t.Fatalf("expected categories in response, got %#v", resp.Items)
	}
}

func TestCatalogHandlersListAttributes(t *testing.T) {
	router := newTestRouter()
	service := &stubCatalogService{
		listAttrsFunc: func(context.Context) ([]services.Attribute, error) {
			return []services.Attribute{
				{ID: "attr_1", Name: "Vinyl Color", Slug: "vinyl-color", Type: domain.AttributeTypeColor, Options: []services.AttributeOption{
					{ID: "opt_1", Label: "Gold", Hex: "#ffd700", IsActive: true},
				}},
				{ID: "attr_2", Name: "Extras", Slug: "extras", Type: domain.AttributeTypeAddon},
			}, nil
		},
	}
	NewCatalogHandlers(service).Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/attributes", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp attributeListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Options[0].Hex != "#ffd700" {
		t.Fatalf("expected attribute groups in response, got %#v", resp.Items)
	}
}

func TestCatalogHandlersCreateAttribute(t *testing.T) {
	router := newTestRouter()
	var captured services.CreateAttributeCommand
	service := &stubCatalogService{
		createAttrFunc: func(ctx context.Context, cmd services.CreateAttributeCommand) (services.Attribute, error) {
			captured = cmd
			return services.Attribute{ID: "attr_1", Name: cmd.Name, Slug: "vinyl-color", Type: cmd.Type}, nil
		},
	}
	NewCatalogHandlers(service).AdminRoutes(router)

	payload := `{"name":"Vinyl Color","type":"Color","required":true}`
	req := httptest.NewRequest(http.MethodPost, "/attributes", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Type != domain.AttributeTypeColor {
		t.Fatalf("expected attribute type normalised, got %s", captured.Type)
	}
	if !captured.Required {
		t.Fatal("expected required flag forwarded")
	}
}

func TestCatalogHandlersCreateAttributeConflict(t *testing.T) {
	router := newTestRouter()
	service := &stubCatalogService{
		createAttrFunc: func(context.Context, services.CreateAttributeCommand) (services.Attribute, error) {
			return services.Attribute{}, services.ErrCatalogConflict
		},
	}
	NewCatalogHandlers(service).AdminRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/attributes", bytes.NewBufferString(`{"name":"Vinyl Color"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestCatalogHandlersAddAttributeOption(t *testing.T) {
	router := newTestRouter()
	var captured services.AddAttributeOptionCommand
	service := &stubCatalogService{
		addOptionFunc: func(ctx context.Context, cmd services.AddAttributeOptionCommand) (services.Attribute, error) {
			captured = cmd
			return services.Attribute{ID: cmd.AttributeID}, nil
		},
	}
	NewCatalogHandlers(service).AdminRoutes(router)

	payload := `{"label":"Shelving Unit","price_delta":120,"tier":"B"}`
	req := httptest.NewRequest(http.MethodPost, "/attributes/attr_1/options", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.AttributeID != "attr_1" || captured.Label != "Shelving Unit" || captured.Tier != "B" {
		t.Fatalf("unexpected command forwarded: %#v", captured)
	}
}

func TestCatalogHandlersRemoveAttributeOption(t *testing.T) {
	router := newTestRouter()
	service := &stubCatalogService{
		removeOptionFunc: func(_ context.Context, attributeID, optionID string) (services.Attribute, error) {
			if attributeID != "attr_1" || optionID != "opt_2" {
				t.Fatalf("unexpected ids: %s %s", attributeID, optionID)
			}
			return services.Attribute{ID: attributeID}, nil
		},
	}
	NewCatalogHandlers(service).AdminRoutes(router)

	req := httptest.NewRequest(http.MethodDelete, "/attributes/attr_1/options/opt_2", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
