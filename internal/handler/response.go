package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// timeFormat renders timestamps with millisecond precision in UTC.
const timeFormat = "2006-01-02T15:04:05.000Z"

var errInvalidBody = errors.New("Request body must be valid JSON with Content-Type: application/json")

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errInvalidBody
	}
	return decodeStrict(r.Body, v)
}

// parseFrame decodes a single WebSocket text frame into v with the same
// rules as ParseJSON.
func parseFrame(data []byte, v any) error {
	return decodeStrict(bytes.NewReader(data), v)
}

// decodeStrict rejects unknown fields and trailing data after the first value.
func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	if dec.More() {
		return errInvalidBody
	}
	return nil
}

// classifyError maps a service error to an HTTP status, an error code and a
// message. Unknown errors become a generic 500.
func classifyError(err error) (int, string, string) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "validation_error", validationErr.Message
	}

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found", err.Error()
	case errors.Is(err, domain.ErrSessionLimit):
		return http.StatusConflict, "session_limit_reached", err.Error()
	case errors.Is(err, domain.ErrDuplicateOrderRef):
		return http.StatusConflict, "duplicate_order_ref", err.Error()
	case errors.Is(err, domain.ErrFillNotFound):
		return http.StatusNotFound, "fill_not_found", err.Error()
	case errors.Is(err, domain.ErrQuoteNotFound):
		return http.StatusNotFound, "quote_not_found", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "An unexpected error occurred"
	}
}

// mapError writes the HTTP response for a service error.
func mapError(w http.ResponseWriter, err error) {
	status, code, msg := classifyError(err)
	WriteError(w, status, code, msg)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// missingHeader builds the validation error for an absent request header.
func missingHeader(name string) error {
	return &domain.ValidationError{Message: fmt.Sprintf("%s header is required", name)}
}
