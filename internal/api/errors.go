package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/relaycore/internal/auth"
	"github.com/nerrad567/relaycore/internal/device"
	"github.com/nerrad567/relaycore/internal/storage"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeServiceError maps service-layer errors onto HTTP status codes.
// Unknown errors become 500 without leaking internals to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "insufficient permissions")
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, device.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, auth.ErrUsernameExists), errors.Is(err, device.ErrChannelExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, device.ErrInvalidDevice):
		writeBadRequest(w, err.Error())
	case errors.Is(err, storage.ErrPersistence):
		// The change applied in memory and on the relays, but did not
		// reach disk. Tell the client the truth.
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "state changed but could not be persisted")
	default:
		s.logger.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
