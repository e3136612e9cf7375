package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/services"
)

const maxPricingBodySize = 32 * 1024

// PricingHandlers serves the three singleton pricing tables: shelving addons,
// distance-based shipping, and custom signage.
type PricingHandlers struct {
	pricing services.PricingConfigService
}

// NewPricingHandlers constructs a new PricingHandlers instance.
func NewPricingHandlers(pricing services.PricingConfigService) *PricingHandlers {
	return &PricingHandlers{pricing: pricing}
}

// Routes registers the public pricing endpoints.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/shelving", h.getShelving)
	r.Get("/shipping", h.getShipping)
	r.Get("/signage", h.getSignage)
}

// AdminRoutes registers the back-office pricing endpoints.
func (h *PricingHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/shelving", h.getShelving)
	r.Post("/shelving/tier-a/sizes", h.addShelvingSize)
	r.Put("/shelving/tier-a/sizes/{sizeID}", h.updateShelvingSize)
	r.Delete("/shelving/tier-a/sizes/{sizeID}", h.removeShelvingSize)
	r.Put("/shelving/tier-b", h.updateShelvingTierB)
	r.Put("/shelving/tier-c", h.updateShelvingTierC)

	r.Get("/shipping", h.getShipping)
	r.Post("/shipping/ranges", h.addShippingRange)
	r.Put("/shipping/ranges/{rangeID}", h.updateShippingRange)
	r.Delete("/shipping/ranges/{rangeID}", h.removeShippingRange)
	r.Put("/shipping/warehouse", h.updateWarehouse)

	r.Get("/signage", h.getSignage)
	r.Post("/signage/sizes", h.addSignageSize)
	r.Put("/signage/sizes/{sizeID}", h.updateSignageSize)
	r.Delete("/signage/sizes/{sizeID}", h.removeSignageSize)
	r.Put("/signage/base", h.updateSignageBase)
}

type shelvingSizePayload struct {
	ID         string  `json:"id"`
	Size       string  `json:"size"`
	Dimensions string  `json:"dimensions"`
	Price      float64 `json:"price"`
}

type shelvingTierPayload struct {
	Dimensions  string  `json:"dimensions"`
	Price       float64 `json:"price"`
	MaxQuantity int     `json:"max_quantity"`
}

type shelvingConfigPayload struct {
	ID         string                `json:"id"`
	TierASizes []shelvingSizePayload `json:"tier_a_sizes"`
	TierB      shelvingTierPayload   `json:"tier_b"`
	TierC      shelvingTierPayload   `json:"tier_c"`
	IsActive   bool                  `json:"is_active"`
	UpdatedAt  string                `json:"updated_at,omitempty"`
}

type shelvingConfigResponse struct {
	Shelving shelvingConfigPayload `json:"shelving"`
}

type shelvingSizeRequest struct {
	Size       string  `json:"size"`
	Dimensions string  `json:"dimensions"`
	Price      float64 `json:"price"`
}

type shelvingTierRequest struct {
	Dimensions  string  `json:"dimensions"`
	Price       float64 `json:"price"`
	MaxQuantity *int    `json:"max_quantity"`
}

type shippingRangePayload struct {
	ID          string   `json:"id"`
	MinDistance float64  `json:"min_distance"`
	MaxDistance *float64 `json:"max_distance,omitempty"`
	Label       string   `json:"label"`
	Price       float64  `json:"price"`
}

type warehousePayload struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type shippingConfigPayload struct {
	ID        string                 `json:"id"`
	Ranges    []shippingRangePayload `json:"ranges"`
	Warehouse warehousePayload       `json:"warehouse"`
	IsActive  bool                   `json:"is_active"`
	UpdatedAt string                 `json:"updated_at,omitempty"`
}

type shippingConfigResponse struct {
	Shipping shippingConfigPayload `json:"shipping"`
}

type shippingRangeRequest struct {
	MinDistance float64  `json:"min_distance"`
	MaxDistance *float64 `json:"max_distance"`
	Label       string   `json:"label"`
	Price       float64  `json:"price"`
}

type warehouseRequest struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type signageSizePayload struct {
	ID       string  `json:"id"`
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	FontSize int     `json:"font_size"`
	Price    float64 `json:"price"`
}

type signageConfigPayload struct {
	ID        string               `json:"id"`
	WidthFt   float64              `json:"width_ft"`
	HeightFt  float64              `json:"height_ft"`
	Sizes     []signageSizePayload `json:"sizes"`
	BasePrice float64              `json:"base_price"`
	IsActive  bool                 `json:"is_active"`
	UpdatedAt string               `json:"updated_at,omitempty"`
}

type signageConfigResponse struct {
	Signage signageConfigPayload `json:"signage"`
}

type signageSizeRequest struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	FontSize int     `json:"font_size"`
	Price    float64 `json:"price"`
}

type signageBaseRequest struct {
	WidthFt   float64 `json:"width_ft"`
	HeightFt  float64 `json:"height_ft"`
	BasePrice float64 `json:"base_price"`
}

func (h *PricingHandlers) getShelving(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	config, err := h.pricing.GetShelvingConfig(ctx)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shelvingConfigResponse{Shelving: buildShelvingPayload(config)})
}

func (h *PricingHandlers) addShelvingSize(w http.ResponseWriter, r *http.Request) {
	h.upsertShelvingSize(w, r, "")
}

func (h *PricingHandlers) updateShelvingSize(w http.ResponseWriter, r *http.Request) {
	sizeID := strings.TrimSpace(chi.URLParam(r, "sizeID"))
	if sizeID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "size id is required", http.StatusBadRequest))
		return
	}
	h.upsertShelvingSize(w, r, sizeID)
}

func (h *PricingHandlers) upsertShelvingSize(w http.ResponseWriter, r *http.Request, sizeID string) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}

	var req shelvingSizeRequest
	if !decodeJSONBody(ctx, w, r, maxPricingBodySize, &req) {
		return
	}

	cmd := services.ShelvingSizeCommand{
		SizeID:     sizeID,
		Size:       strings.TrimSpace(req.Size),
		Dimensions: strings.TrimSpace(req.Dimensions),
		Price:      req.Price,
	}

	var config services.ShelvingConfig
	var err error
	if sizeID == "" {
		config, err = h.pricing.AddShelvingTierASize(ctx, cmd)
	} else {
		config, err = h.pricing.UpdateShelvingTierASize(ctx, cmd)
	}
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if sizeID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, shelvingConfigResponse{Shelving: buildShelvingPayload(config)})
}

func (h *PricingHandlers) removeShelvingSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	sizeID := strings.TrimSpace(chi.URLParam(r, "sizeID"))
	if sizeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "size id is required", http.StatusBadRequest))
		return
	}
	config, err := h.pricing.RemoveShelvingTierASize(ctx, sizeID)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shelvingConfigResponse{Shelving: buildShelvingPayload(config)})
}

func (h *PricingHandlers) updateShelvingTierB(w http.ResponseWriter, r *http.Request) {
	h.updateShelvingTier(w, r, h.pricingTierUpdater(false))
}

func (h *PricingHandlers) updateShelvingTierC(w http.ResponseWriter, r *http.Request) {
	h.updateShelvingTier(w, r, h.pricingTierUpdater(true))
}

type tierUpdater func(ctx context.Context, cmd services.ShelvingTierCommand) (services.ShelvingConfig, error)

func (h *PricingHandlers) pricingTierUpdater(tierC bool) tierUpdater {
	if tierC {
		return func(ctx context.Context, cmd services.ShelvingTierCommand) (services.ShelvingConfig, error) {
			return h.pricing.UpdateShelvingTierC(ctx, cmd)
		}
	}
	return func(ctx context.Context, cmd services.ShelvingTierCommand) (services.ShelvingConfig, error) {
		return h.pricing.UpdateShelvingTierB(ctx, cmd)
	}
}

func (h *PricingHandlers) updateShelvingTier(w http.ResponseWriter, r *http.Request, update tierUpdater) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}

	var req shelvingTierRequest
	if !decodeJSONBody(ctx, w, r, maxPricingBodySize, &req) {
		return
	}

	config, err := update(ctx, services.ShelvingTierCommand{
		Dimensions:  strings.TrimSpace(req.Dimensions),
		Price:       req.Price,
		MaxQuantity: req.MaxQuantity,
	})
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shelvingConfigResponse{Shelving: buildShelvingPayload(config)})
}

func (h *PricingHandlers) getShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	config, err := h.pricing.GetShippingConfig(ctx)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shippingConfigResponse{Shipping: buildShippingPayload(config)})
}

func (h *PricingHandlers) addShippingRange(w http.ResponseWriter, r *http.Request) {
	h.upsertShippingRange(w, r, "")
}

func (h *PricingHandlers) updateShippingRange(w http.ResponseWriter, r *http.Request) {
	rangeID := strings.TrimSpace(chi.URLParam(r, "rangeID"))
	if rangeID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "range id is required", http.StatusBadRequest))
		return
	}
	h.upsertShippingRange(w, r, rangeID)
}

func (h *PricingHandlers) upsertShippingRange(w http.ResponseWriter, r *http.Request, rangeID string) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}

	var req shippingRangeRequest
	if !decodeJSONBody(ctx, w, r, maxPricingBodySize, &req) {
		return
	}

	cmd := services.ShippingRangeCommand{
		RangeID:     rangeID,
		MinDistance: req.MinDistance,
		MaxDistance: req.MaxDistance,
		Label:       strings.TrimSpace(req.Label),
		Price:       req.Price,
	}

	var config services.ShippingConfig
	var err error
	if rangeID == "" {
		config, err = h.pricing.AddShippingRange(ctx, cmd)
	} else {
		config, err = h.pricing.UpdateShippingRange(ctx, cmd)
	}
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if rangeID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, shippingConfigResponse{Shipping: buildShippingPayload(config)})
}

func (h *PricingHandlers) removeShippingRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	rangeID := strings.TrimSpace(chi.URLParam(r, "rangeID"))
	if rangeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "range id is required", http.StatusBadRequest))
		return
	}
	config, err := h.pricing.RemoveShippingRange(ctx, rangeID)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shippingConfigResponse{Shipping: buildShippingPayload(config)})
}

func (h *PricingHandlers) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}

	var req warehouseRequest
	if !decodeJSONBody(ctx, w, r, maxPricingBodySize, &req) {
		return
	}

	config, err := h.pricing.UpdateWarehouse(ctx, services.WarehouseCommand{
		Address:   strings.TrimSpace(req.Address),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shippingConfigResponse{Shipping: buildShippingPayload(config)})
}

func (h *PricingHandlers) getSignage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	config, err := h.pricing.GetSignageConfig(ctx)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, signageConfigResponse{Signage: buildSignagePayload(config)})
}

func (h *PricingHandlers) addSignageSize(w http.ResponseWriter, r *http.Request) {
	h.upsertSignageSize(w, r, "")
}

func (h *PricingHandlers) updateSignageSize(w http.ResponseWriter, r *http.Request) {
	sizeID := strings.TrimSpace(chi.URLParam(r, "sizeID"))
	if sizeID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "size id is required", http.StatusBadRequest))
		return
	}
	h.upsertSignageSize(w, r, sizeID)
}

func (h *PricingHandlers) upsertSignageSize(w http.ResponseWriter, r *http.Request, sizeID string) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}

	var req signageSizeRequest
	if !decodeJSONBody(ctx, w, r, maxPricingBodySize, &req) {
		return
	}

	cmd := services.SignageSizeCommand{
		SizeID:   sizeID,
		Key:      strings.TrimSpace(req.Key),
		Label:    strings.TrimSpace(req.Label),
		FontSize: req.FontSize,
		Price:    req.Price,
	}

	var config services.SignageConfig
	var err error
	if sizeID == "" {
		config, err = h.pricing.AddSignageSize(ctx, cmd)
	} else {
		config, err = h.pricing.UpdateSignageSize(ctx, cmd)
	}
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if sizeID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, signageConfigResponse{Signage: buildSignagePayload(config)})
}

func (h *PricingHandlers) removeSignageSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	sizeID := strings.TrimSpace(chi.URLParam(r, "sizeID"))
	if sizeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "size id is required", http.StatusBadRequest))
		return
	}
	config, err := h.pricing.RemoveSignageSize(ctx, sizeID)
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, signageConfigResponse{Signage: buildSignagePayload(config)})
}

func (h *PricingHandlers) updateSignageBase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}

	var req signageBaseRequest
	if !decodeJSONBody(ctx, w, r, maxPricingBodySize, &req) {
		return
	}

	config, err := h.pricing.UpdateSignageBase(ctx, services.SignageBaseCommand{
		WidthFt:   req.WidthFt,
		HeightFt:  req.HeightFt,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		writePricingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, signageConfigResponse{Signage: buildSignagePayload(config)})
}

func (h *PricingHandlers) available(ctx context.Context, w http.ResponseWriter) bool {
	if h == nil || h.pricing == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_service_unavailable", "pricing service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func buildShelvingPayload(config services.ShelvingConfig) shelvingConfigPayload {
	payload := shelvingConfigPayload{
		ID:         strings.TrimSpace(config.ID),
		TierASizes: make([]shelvingSizePayload, 0, len(config.TierASizes)),
		TierB:      buildShelvingTierPayload(config.TierB),
		TierC:      buildShelvingTierPayload(config.TierC),
		IsActive:   config.IsActive,
		UpdatedAt:  formatTime(config.UpdatedAt),
	}
	for _, size := range config.TierASizes {
		payload.TierASizes = append(payload.TierASizes, shelvingSizePayload{
			ID:         size.ID,
			Size:       size.Size,
			Dimensions: size.Dimensions,
			Price:      size.Price,
		})
	}
	return payload
}

func buildShelvingTierPayload(tier services.ShelvingTier) shelvingTierPayload {
	return shelvingTierPayload{
		Dimensions:  tier.Dimensions,
		Price:       tier.Price,
		MaxQuantity: tier.MaxQuantity,
	}
}

func buildShippingPayload(config services.ShippingConfig) shippingConfigPayload {
	payload := shippingConfigPayload{
		ID:     strings.TrimSpace(config.ID),
		Ranges: make([]shippingRangePayload, 0, len(config.Ranges)),
		Warehouse: warehousePayload{
			Address:   config.Warehouse.Address,
			Latitude:  config.Warehouse.Latitude,
			Longitude: config.Warehouse.Longitude,
		},
		IsActive:  config.IsActive,
		UpdatedAt: formatTime(config.UpdatedAt),
	}
	for _, rng := range config.Ranges {
		entry := shippingRangePayload{
			ID:          rng.ID,
			MinDistance: rng.MinDistance,
			Label:       rng.Label,
			Price:       rng.Price,
		}
		if rng.MaxDistance != nil {
			max := *rng.MaxDistance
			entry.MaxDistance = &max
		}
		payload.Ranges = append(payload.Ranges, entry)
	}
	return payload
}

func buildSignagePayload(config services.SignageConfig) signageConfigPayload {
	payload := signageConfigPayload{
		ID:        strings.TrimSpace(config.ID),
		WidthFt:   config.WidthFt,
		HeightFt:  config.HeightFt,
		Sizes:     make([]signageSizePayload, 0, len(config.Sizes)),
		BasePrice: config.BasePrice,
		IsActive:  config.IsActive,
		UpdatedAt: formatTime(config.UpdatedAt),
	}
	for _, size := range config.Sizes {
		payload.Sizes = append(payload.Sizes, signageSizePayload{
			ID:       size.ID,
			Key:      size.Key,
			Label:    size.Label,
			FontSize: size.FontSize,
			Price:    size.Price,
		})
	}
	return payload
}

func writePricingError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPricingConfigInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPricingConfigItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("pricing_item_not_found", err.Error(), http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("pricing_error", "failed to process pricing request", http.StatusInternalServerError))
	}
}
