package http

import (
	"net/http"
	"time"
)

// ErrorBody is the error object inside an ErrorResponse
type ErrorBody struct {
	Code    int         `json:"code"`              // Mirrors the HTTP status
	Message string      `json:"message"`           // Human-readable message
	Details interface{} `json:"details,omitempty"` // Optional structured context, e.g. field errors
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrorWithDetails(w, statusCode, message, nil)
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message string, details interface{}) {
	resp := ErrorResponse{
		Success: false,
		Error: ErrorBody{
			Code:    statusCode,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	writeJSON(w, statusCode, resp)
}

// Common error writers for consistency
func WriteValidationError(w http.ResponseWriter, details interface{}) {
	WriteErrorWithDetails(w, http.StatusBadRequest, "validationError", details)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

// WriteInternalError never echoes internal detail; callers log it instead.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "An unexpected error occurred on the server.")
}
