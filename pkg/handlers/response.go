package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/statforms/statforms-engine/pkg/apperrors"
	"github.com/statforms/statforms-engine/pkg/services"
)

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorDetail writes the error contract of the API: {"detail": "..."}.
func ErrorDetail(w http.ResponseWriter, statusCode int, detail string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// serviceError maps service-layer failures onto status codes without leaking
// internals: validation faults are 400, missing entities 404, everything
// else a generic 500.
func serviceError(w http.ResponseWriter, err error) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return ErrorDetail(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorDetail(w, http.StatusNotFound, err.Error())
	default:
		return ErrorDetail(w, http.StatusInternalServerError, "internal error")
	}
}
