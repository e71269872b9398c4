// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message, Details: details})
}

// writeAppError maps the apperr taxonomy onto status codes. Anything else is
// logged and reported as a bare 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsNotFound(err):
		WriteJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case apperr.IsValidation(err):
		WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case apperr.IsConflict(err):
		WriteJSONError(w, http.StatusConflict, "conflict", err.Error())
	case apperr.IsUnauthorized(err):
		WriteJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case apperr.IsForbidden(err):
		WriteJSONError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		obs.Logger.Error("request_failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err.Error(),
		)
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
