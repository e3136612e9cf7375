package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/services"
)

const (
	defaultProductPageSize = 24
	maxProductPageSize     = 100
	maxCatalogBodySize     = 64 * 1024
)

// CatalogHandlers serves public catalog reads and the back-office write
// endpoints for products and categories.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs a new CatalogHandlers instance.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the public catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/categories", h.listCategories)
	r.Get("/attributes", h.listAttributes)
}

// AdminRoutes registers the back-office catalog endpoints.
func (h *CatalogHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
	r.Post("/categories", h.createCategory)
	r.Put("/categories/{categoryID}", h.updateCategory)
	r.Delete("/categories/{categoryID}", h.deleteCategory)
	r.Post("/attributes", h.createAttribute)
	r.Delete("/attributes/{attributeID}", h.deleteAttribute)
	r.Post("/attributes/{attributeID}/options", h.addAttributeOption)
	r.Delete("/attributes/{attributeID}/options/{optionID}", h.removeAttributeOption)
}

type productPayload struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	ProductType       string   `json:"product_type"`
	CategoryID        string   `json:"category_id,omitempty"`
	Price             float64  `json:"price"`
	Images            []string `json:"images,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	AvailabilityCount int      `json:"availability_count"`
	BlockedDates      []string `json:"blocked_dates,omitempty"`
	Active            bool     `json:"active"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productListResponse struct {
	Items         []productPayload `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type upsertProductRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ProductType       string   `json:"product_type"`
	CategoryID        string   `json:"category_id"`
	Price             float64  `json:"price"`
	Images            []string `json:"images"`
	Tags              []string `json:"tags"`
	AvailabilityCount int      `json:"availability_count"`
	Active            *bool    `json:"active"`
}

type categoryPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type categoryResponse struct {
	Category categoryPayload `json:"category"`
}

type categoryListResponse struct {
	Items []categoryPayload `json:"items"`
}

type upsertCategoryRequest struct {
	Name string `json:"name"`
}

type attributeOptionPayload struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Value      string  `json:"value,omitempty"`
	Hex        string  `json:"hex,omitempty"`
	PriceDelta float64 `json:"price_delta"`
	Tier       string  `json:"tier,omitempty"`
	IsActive   bool    `json:"is_active"`
	SortOrder  int     `json:"sort_order"`
}

type attributePayload struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Slug      string                   `json:"slug"`
	Type      string                   `json:"type"`
	Required  bool                     `json:"required"`
	Options   []attributeOptionPayload `json:"options"`
	CreatedAt string                   `json:"created_at,omitempty"`
	UpdatedAt string                   `json:"updated_at,omitempty"`
}

type attributeResponse struct {
	Attribute attributePayload `json:"attribute"`
}

type attributeListResponse struct {
	Items []attributePayload `json:"items"`
}

type createAttributeRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type addAttributeOptionRequest struct {
	Label      string  `json:"label"`
	Hex        string  `json:"hex"`
	PriceDelta float64 `json:"price_delta"`
	Tier       string  `json:"tier"`
	SortOrder  int     `json:"sort_order"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.ProductListFilter{
		ActiveOnly: true,
	}
	if raw := strings.TrimSpace(query.Get("category")); raw != "" {
		filter.CategoryID = &raw
	}
	if raw := strings.ToLower(strings.TrimSpace(query.Get("type"))); raw != "" {
		filter.ProductType = &raw
	}
	if raw := strings.TrimSpace(query.Get("include_inactive")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_inactive must be a boolean", http.StatusBadRequest))
			return
		}
		filter.ActiveOnly = !include
	}

	pageSize := defaultProductPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case size <= 0:
			pageSize = defaultProductPageSize
		case size > maxProductPageSize:
			pageSize = maxProductPageSize
		default:
			pageSize = size
		}
	}
	filter.Pagination = services.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	h.upsertProduct(w, r, "")
}

func (h *CatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}
	h.upsertProduct(w, r, productID)
}

func (h *CatalogHandlers) upsertProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req upsertProductRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	product := services.Product{
		ID:                productID,
		Name:              req.Name,
		Description:       req.Description,
		ProductType:       domain.ProductType(strings.ToLower(strings.TrimSpace(req.ProductType))),
		CategoryID:        strings.TrimSpace(req.CategoryID),
		Price:             req.Price,
		Images:            append([]string(nil), req.Images...),
		Tags:              append([]string(nil), req.Tags...),
		AvailabilityCount: req.AvailabilityCount,
		Active:            true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	cmd := services.UpsertProductCommand{
		Product: product,
		ActorID: actorIDFromContext(ctx),
	}

	var saved services.Product
	var err error
	if productID == "" {
		saved, err = h.catalog.CreateProduct(ctx, cmd)
	} else {
		saved, err = h.catalog.UpdateProduct(ctx, cmd)
	}
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if productID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, productResponse{Product: buildProductPayload(saved)})
}

func (h *CatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]categoryPayload, 0, len(categories))
	for _, category := range categories {
		items = append(items, buildCategoryPayload(category))
	}
	writeJSONResponse(w, http.StatusOK, categoryListResponse{Items: items})
}

func (h *CatalogHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	h.upsertCategory(w, r, "")
}

func (h *CatalogHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := strings.TrimSpace(chi.URLParam(r, "categoryID"))
	if categoryID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "category id is required", http.StatusBadRequest))
		return
	}
	h.upsertCategory(w, r, categoryID)
}

func (h *CatalogHandlers) upsertCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req upsertCategoryRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	cmd := services.UpsertCategoryCommand{
		Category: services.Category{
			ID:   categoryID,
			Name: req.Name,
		},
		ActorID: actorIDFromContext(ctx),
	}

	var saved services.Category
	var err error
	if categoryID == "" {
		saved, err = h.catalog.CreateCategory(ctx, cmd)
	} else {
		saved, err = h.catalog.UpdateCategory(ctx, cmd)
	}
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if categoryID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, categoryResponse{Category: buildCategoryPayload(saved)})
}

func (h *CatalogHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	categoryID := strings.TrimSpace(chi.URLParam(r, "categoryID"))
	if categoryID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "category id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteCategory(ctx, categoryID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listAttributes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	attributes, err := h.catalog.ListAttributes(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]attributePayload, 0, len(attributes))
	for _, attribute := range attributes {
		items = append(items, buildAttributePayload(attribute))
	}
	writeJSONResponse(w, http.StatusOK, attributeListResponse{Items: items})
}

func (h *CatalogHandlers) createAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createAttributeRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	attribute, err := h.catalog.CreateAttribute(ctx, services.CreateAttributeCommand{
		Name:     req.Name,
		Type:     domain.AttributeType(strings.ToLower(strings.TrimSpace(req.Type))),
		Required: req.Required,
		ActorID:  actorIDFromContext(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, attributeResponse{Attribute: buildAttributePayload(attribute)})
}

func (h *CatalogHandlers) deleteAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	attributeID := strings.TrimSpace(chi.URLParam(r, "attributeID"))
	if attributeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "attribute id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteAttribute(ctx, attributeID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) addAttributeOption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	attributeID := strings.TrimSpace(chi.URLParam(r, "attributeID"))
	if attributeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "attribute id is required", http.StatusBadRequest))
		return
	}

	var req addAttributeOptionRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogBodySize, &req) {
		return
	}

	attribute, err := h.catalog.AddAttributeOption(ctx, services.AddAttributeOptionCommand{
		AttributeID: attributeID,
		Label:       req.Label,
		Hex:         req.Hex,
		PriceDelta:  req.PriceDelta,
		Tier:        req.Tier,
		SortOrder:   req.SortOrder,
		ActorID:     actorIDFromContext(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, attributeResponse{Attribute: buildAttributePayload(attribute)})
}

func (h *CatalogHandlers) removeAttributeOption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	attributeID := strings.TrimSpace(chi.URLParam(r, "attributeID"))
	optionID := strings.TrimSpace(chi.URLParam(r, "optionID"))
	if attributeID == "" || optionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "attribute id and option id are required", http.StatusBadRequest))
		return
	}

	attribute, err := h.catalog.RemoveAttributeOption(ctx, attributeID, optionID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, attributeResponse{Attribute: buildAttributePayload(attribute)})
}

func buildProductPayload(product services.Product) productPayload {
	return productPayload{
		ID:                strings.TrimSpace(product.ID),
		Name:              product.Name,
		Description:       product.Description,
		ProductType:       string(product.ProductType),
		CategoryID:        strings.TrimSpace(product.CategoryID),
		Price:             product.Price,
		Images:            append([]string(nil), product.Images...),
		Tags:              append([]string(nil), product.Tags...),
		AvailabilityCount: product.AvailabilityCount,
		BlockedDates:      append([]string(nil), product.BlockedDates...),
		Active:            product.Active,
		CreatedAt:         formatTime(product.CreatedAt),
		UpdatedAt:         formatTime(product.UpdatedAt),
	}
}

func buildCategoryPayload(category services.Category) categoryPayload {
	return categoryPayload{
		ID:        strings.TrimSpace(category.ID),
		Name:      category.Name,
		Slug:      category.Slug,
		CreatedAt: formatTime(category.CreatedAt),
		UpdatedAt: formatTime(category.UpdatedAt),
	}
}

func buildAttributePayload(attribute services.Attribute) attributePayload {
	options := make([]attributeOptionPayload, 0, len(attribute.Options))
	for _, opt := range attribute.Options {
		options = append(options, attributeOptionPayload{
			ID:         opt.ID,
			Label:      opt.Label,
			Value:      opt.Value,
			Hex:        opt.Hex,
			PriceDelta: opt.PriceDelta,
			Tier:       opt.Tier,
			IsActive:   opt.IsActive,
			SortOrder:  opt.SortOrder,
		})
	}
	return attributePayload{
		ID:        strings.TrimSpace(attribute.ID),
		Name:      attribute.Name,
		Slug:      attribute.Slug,
		Type:      string(attribute.Type),
		Required:  attribute.Required,
		Options:   options,
		CreatedAt: formatTime(attribute.CreatedAt),
		UpdatedAt: formatTime(attribute.UpdatedAt),
	}
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_not_found", "catalog entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
