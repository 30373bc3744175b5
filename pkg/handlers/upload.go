package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/statforms/statforms-engine/pkg/services"
)

// UploadHandler accepts multipart workbook batches.
type UploadHandler struct {
	uploads services.UploadService
	maxMem  int64
	logger  *zap.Logger
}

// NewUploadHandler creates the upload endpoint handler.
func NewUploadHandler(uploads services.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxMem: 32 << 20, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload", h.Upload)
}

// Upload handles POST /upload: multipart fields "files" (one or more binary
// parts), "form_id", optional "skip_sheets" and "reference_keywords". The
// batch response is always 200 so partial success stays reportable; request
// validation failures are 400/404.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxMem); err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	formID := r.FormValue("form_id")

	overrides, err := parseOverrides(r)
	if err != nil {
		_ = ErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	var files []services.UploadFile
	for _, header := range r.MultipartForm.File["files"] {
		part, err := header.Open()
		if err != nil {
			_ = ErrorDetail(w, http.StatusBadRequest, fmt.Sprintf("could not open part %q", header.Filename))
			return
		}
		defer part.Close()
		files = append(files, services.UploadFile{Filename: header.Filename, Reader: part})
	}

	summary, err := h.uploads.Upload(r.Context(), files, formID, overrides)
	if err != nil {
		_ = serviceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to encode upload summary", zap.Error(err))
	}
}

func parseOverrides(r *http.Request) (*services.UploadOverrides, error) {
	overrides := &services.UploadOverrides{}
	for _, raw := range r.MultipartForm.Value["skip_sheets"] {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("skip_sheets value %q is not a non-negative integer", raw)
		}
		overrides.SkipSheets = append(overrides.SkipSheets, idx)
	}
	overrides.ReferenceKeywords = r.MultipartForm.Value["reference_keywords"]
	if len(overrides.SkipSheets) == 0 && len(overrides.ReferenceKeywords) == 0 {
		return nil, nil
	}
	return overrides, nil
}
