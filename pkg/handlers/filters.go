package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/services"
)

// FilterHandler serves the multi-dimensional filter read path.
type FilterHandler struct {
	queries  services.QueryService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFilterHandler creates the filter endpoints handler.
func NewFilterHandler(queries services.QueryService, logger *zap.Logger) *FilterHandler {
	return &FilterHandler{
		queries:  queries,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the filter handler's routes on the given mux.
func (h *FilterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /filters-names", h.FilterNames)
	mux.HandleFunc("POST /filter-values", h.FilterValues)
	mux.HandleFunc("POST /filtered-data", h.FilteredData)
}

type appliedFilterRequest struct {
	Name   string   `json:"filter-name" validate:"required"`
	Values []string `json:"values" validate:"required,min=1"`
}

type filterValuesRequest struct {
	Name    string                 `json:"filter-name" validate:"required"`
	Filters []appliedFilterRequest `json:"filters" validate:"omitempty,dive"`
	Pattern string                 `json:"pattern"`
	FormID  string                 `json:"form_id" validate:"omitempty,uuid"`
}

type filterValuesResponse struct {
	Name   string `json:"filter-name"`
	Values []any  `json:"values"`
}

type filteredDataRequest struct {
	Filters []appliedFilterRequest `json:"filters" validate:"omitempty,dive"`
	Limit   int                    `json:"limit" validate:"gte=0,lte=10000"`
	Offset  int                    `json:"offset" validate:"gte=0"`
	FormID  string                 `json:"form_id" validate:"omitempty,uuid"`
}

type filteredDataResponse struct {
	Headers []string `json:"headers"`
	Data    [][]any  `json:"data"`
	Size    int      `json:"size"`
	MaxSize int64    `json:"max_size"`
}

// FilterNames handles GET /filters-names. The list is fixed by the record
// shape, not derived from stored data.
func (h *FilterHandler) FilterNames(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, services.DimensionNames); err != nil {
		h.logger.Error("Failed to encode filter names", zap.Error(err))
	}
}

// FilterValues handles POST /filter-values.
func (h *FilterHandler) FilterValues(w http.ResponseWriter, r *http.Request) {
	var req filterValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	formID, err := parseOptionalUUID(req.FormID)
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "form_id is not a valid UUID")
		return
	}

	values, err := h.queries.FilterValues(r.Context(), req.Name, toAppliedFilters(req.Filters), req.Pattern, formID)
	if err != nil {
		_ = serviceError(w, err)
		return
	}
	if values == nil {
		values = []any{}
	}

	if err := WriteJSON(w, http.StatusOK, filterValuesResponse{Name: req.Name, Values: values}); err != nil {
		h.logger.Error("Failed to encode filter values", zap.Error(err))
	}
}

// FilteredData handles POST /filtered-data.
func (h *FilterHandler) FilteredData(w http.ResponseWriter, r *http.Request) {
	var req filteredDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	formID, err := parseOptionalUUID(req.FormID)
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "form_id is not a valid UUID")
		return
	}

	page, err := h.queries.FilteredData(r.Context(), toAppliedFilters(req.Filters), req.Limit, req.Offset, formID)
	if err != nil {
		_ = serviceError(w, err)
		return
	}
	if page.Rows == nil {
		page.Rows = [][]any{}
	}

	resp := filteredDataResponse{
		Headers: services.DataHeaders,
		Data:    page.Rows,
		Size:    len(page.Rows),
		MaxSize: page.Total,
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode filtered data", zap.Error(err))
	}
}

func toAppliedFilters(filters []appliedFilterRequest) []services.AppliedFilter {
	out := make([]services.AppliedFilter, 0, len(filters))
	for _, f := range filters {
		out = append(out, services.AppliedFilter{Dimension: f.Name, Values: f.Values})
	}
	return out
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
