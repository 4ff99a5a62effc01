package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an AutomationError to an HTTP status and writes it.
func writeError(w http.ResponseWriter, err error) {
	code := schema.ErrorCode(err)
	writeJSON(w, statusForCode(code), map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}

func statusForCode(code string) int {
	switch code {
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeConflict, schema.ErrCodeUnexpectedInput, schema.ErrCodeSessionTerminated:
		return http.StatusConflict
	case schema.ErrCodeValidation, schema.ErrCodeMissingParameter,
		schema.ErrCodeInvalidObjective, schema.ErrCodeSessionNotCompleted:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid request body").WithCause(err)
	}
	return nil
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
