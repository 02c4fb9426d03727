// Package httputil holds the JSON response and request-decoding helpers shared
// by every HTTP handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	dErrors "github.com/Kakrote/udyam-registration-app/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; registration payloads are a few KB.
const maxBodyBytes = 1 << 20

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ValidationResponse is the body of a 400 caused by rejected fields.
type ValidationResponse struct {
	Error     string               `json:"error"`
	Message   string               `json:"message"`
	Details   []dErrors.FieldError `json:"details"`
	Timestamp time.Time            `json:"timestamp"`
}

// WriteError translates a domain error into an HTTP response. Field errors are
// rendered with their details; internal errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	var fields dErrors.FieldErrors
	if errors.As(err, &fields) {
		WriteJSON(w, http.StatusBadRequest, ValidationResponse{
			Error:     "Validation error",
			Message:   "Invalid request data",
			Details:   fields,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	code := dErrors.CodeOf(err)
	status := StatusFor(code)
	body := map[string]string{"error": string(code)}
	var de *dErrors.Error
	if status < http.StatusInternalServerError && errors.As(err, &de) {
		body["error_description"] = de.Message
	}
	WriteJSON(w, status, body)
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvalidFormat:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes the request body into T. A malformed body becomes a
// single field error on "body".
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var fields dErrors.FieldErrors
		fields.Add("body", "invalid_json", "Request body must be a valid JSON object")
		return nil, fields.Err()
	}
	return &req, nil
}
