package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/party-rentals/api/internal/platform/httpx"
	"github.com/party-rentals/api/internal/services"
)

const maxCounterBodySize = 4 * 1024

// SystemHandlers exposes back-office utility endpoints.
type SystemHandlers struct {
	system services.SystemService
}

// NewSystemHandlers constructs a new SystemHandlers instance.
func NewSystemHandlers(system services.SystemService) *SystemHandlers {
	return &SystemHandlers{system: system}
}

// AdminRoutes registers the utility endpoints under the admin group.
func (h *SystemHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/counters/{counterID}:next", h.nextCounterValue)
}

type counterValueResponse struct {
	CounterID string `json:"counter_id"`
	Value     int64  `json:"value"`
}

type nextCounterRequest struct {
	Step int64 `json:"step"`
}

func (h *SystemHandlers) nextCounterValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError("system_service_unavailable", "system service unavailable", http.StatusServiceUnavailable))
		return
	}

	counterID := strings.TrimSpace(chi.URLParam(r, "counterID"))
	if counterID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "counter id is required", http.StatusBadRequest))
		return
	}

	var req nextCounterRequest
	if body, err := readLimitedBody(r, maxCounterBodySize); err == nil {
		if jsonErr := json.Unmarshal(body, &req); jsonErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	} else if !errors.Is(err, errEmptyBody) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	value, err := h.system.NextCounterValue(ctx, services.CounterCommand{
		CounterID: counterID,
		Step:      req.Step,
	})
	if err != nil {
		writeSystemError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, counterValueResponse{
		CounterID: counterID,
		Value:     value,
	})
}

func writeSystemError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("system_error", "failed to process system request", http.StatusInternalServerError))
}
