package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// decodeJSON decodes the request body into v, writing the error response
// itself and returning false on failure. With optional set an empty body is
// accepted and leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if r.ContentLength == 0 && optional {
		return true
	}
	ct := r.Header.Get("Content-Type")
	isJSON := strings.HasPrefix(strings.ToLower(ct), "application/json")
	if !isJSON && !(optional && ct == "") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return true
		}
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}
