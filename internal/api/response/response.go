// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Response is the envelope: data on success, error otherwise
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("failed to write response")
	}
}

// JSON sends data with status; 2xx statuses mark the envelope successful
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Success: status >= 200 && status < 300, Data: data})
}

// Error sends message as a failed envelope
func Error(w http.ResponseWriter, status int, message any) {
	write(w, status, Response{Error: message})
}

// NoContent answers 204 with an empty body
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

// TooManyRequests rejects a client over its request budget
func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// Unavailable reports a dependency that is not ready
func Unavailable(w http.ResponseWriter, message any) {
	Error(w, http.StatusServiceUnavailable, message)
}

func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
