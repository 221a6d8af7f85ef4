package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/schema"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// StatusFor maps a store error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConnection), errors.Is(err, domain.ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status StatusFor picks
func WriteError(w http.ResponseWriter, err error) {
	WriteJSONError(w, StatusFor(err), err.Error())
}
