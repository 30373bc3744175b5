package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/models"
	"github.com/statforms/statforms-engine/pkg/services"
)

// FileHandler serves uploaded-file listing and deletion.
type FileHandler struct {
	files  services.FileService
	logger *zap.Logger
}

// NewFileHandler creates the file management handler.
func NewFileHandler(files services.FileService, logger *zap.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger}
}

// RegisterRoutes registers the file handler's routes on the given mux.
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /files", h.List)
	mux.HandleFunc("DELETE /files/{file_id}", h.Delete)
}

// List handles GET /files?limit=&offset=&year=.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil || limit < 0 {
		_ = ErrorDetail(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		_ = ErrorDetail(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	var year *int
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			_ = ErrorDetail(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = &y
	}

	page, err := h.files.List(r.Context(), limit, offset, year)
	if err != nil {
		_ = serviceError(w, err)
		return
	}
	if page.Files == nil {
		page.Files = []*models.FileRecord{}
	}

	if err := WriteJSON(w, http.StatusOK, page); err != nil {
		h.logger.Error("Failed to encode file list", zap.Error(err))
	}
}

// Delete handles DELETE /files/{file_id}. Removing a file also removes every
// record it contributed.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("file_id"))
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "file_id is not a valid UUID")
		return
	}

	if err := h.files.Delete(r.Context(), fileID); err != nil {
		_ = serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
