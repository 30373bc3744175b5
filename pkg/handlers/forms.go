package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/services"
)

// FormHandler serves CRUD over form templates.
type FormHandler struct {
	forms    services.FormService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFormHandler creates the form template handler.
func NewFormHandler(forms services.FormService, logger *zap.Logger) *FormHandler {
	return &FormHandler{forms: forms, validate: validator.New(), logger: logger}
}

// RegisterRoutes registers the form handler's routes on the given mux.
func (h *FormHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /forms", h.Create)
	mux.HandleFunc("GET /forms", h.List)
	mux.HandleFunc("GET /forms/{form_id}", h.Get)
	mux.HandleFunc("PUT /forms/{form_id}", h.Update)
	mux.HandleFunc("DELETE /forms/{form_id}", h.Delete)
}

type formRequest struct {
	Name       string            `json:"name" validate:"required,min=1,max=255"`
	Requisites models.Requisites `json:"requisites"`
}

type formListResponse struct {
	Forms []*models.Form `json:"forms"`
}

// Create handles POST /forms.
func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	form, err := h.forms.Create(r.Context(), req.Name, req.Requisites)
	if err != nil {
		_ = serviceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, form); err != nil {
		h.logger.Error("Failed to encode form", zap.Error(err))
	}
}

// List handles GET /forms.
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.forms.List(r.Context())
	if err != nil {
		_ = serviceError(w, err)
		return
	}
	if forms == nil {
		forms = []*models.Form{}
	}

	if err := WriteJSON(w, http.StatusOK, formListResponse{Forms: forms}); err != nil {
		h.logger.Error("Failed to encode form list", zap.Error(err))
	}
}

// Get handles GET /forms/{form_id}.
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("form_id"))
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "form_id is not a valid UUID")
		return
	}

	form, err := h.forms.Get(r.Context(), id)
	if err != nil {
		_ = serviceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, form); err != nil {
		h.logger.Error("Failed to encode form", zap.Error(err))
	}
}

// Update handles PUT /forms/{form_id}.
func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("form_id"))
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "form_id is not a valid UUID")
		return
	}

	var req formRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	form, err := h.forms.Update(r.Context(), id, req.Name, req.Requisites)
	if err != nil {
		_ = serviceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, form); err != nil {
		h.logger.Error("Failed to encode form", zap.Error(err))
	}
}

// Delete handles DELETE /forms/{form_id}.
func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("form_id"))
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "form_id is not a valid UUID")
		return
	}

	if err := h.forms.Delete(r.Context(), id); err != nil {
		_ = serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
