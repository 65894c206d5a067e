// Package response implements the gateway's JSON response envelope:
// small top-level functions per status code instead of a generic
// render-with-options helper.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// OK sends a 200 OK response with JSON data.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, data)
}

// Accepted sends a 202 Accepted response, used by Submit when the
// transaction was newly enqueued and when a duplicate submission finds
// a record that is not yet terminal.
func Accepted(w http.ResponseWriter, data any) {
	write(w, http.StatusAccepted, data)
}

// Status sends data with an explicit status code, for callers (like
// the health endpoint) whose status is a runtime decision rather than
// one of the fixed verbs above.
func Status(w http.ResponseWriter, status int, data any) {
	write(w, status, data)
}

func write(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// ErrorResponse is the standard error response shape.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a single error.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldIssue `json:"details,omitempty"`
}

// FieldIssue describes one field-level validation failure.
type FieldIssue struct {
	Field string `json:"path"`
	Issue string `json:"message"`
}

// Error sends a generic error response.
func Error(w http.ResponseWriter, code, message string, status int) {
	writeErr(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequest sends a 400 with no field detail.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, "INVALID_REQUEST", message, http.StatusBadRequest)
}

// ValidationFailed sends a 400 with per-field validation detail.
func ValidationFailed(w http.ResponseWriter, fields []FieldIssue) {
	writeErr(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Details: fields,
	}})
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, "NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// ServiceUnavailable sends a 503, used when the state store or queue
// backend cannot be reached.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, "SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable)
}

// InternalError logs err server-side and returns a generic 500 to the
// client, never leaking err's text.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error", "error", err, "path", r.URL.Path)
	Error(w, "INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError)
}

func writeErr(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
