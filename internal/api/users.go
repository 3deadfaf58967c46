package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/relaycore/internal/auth"
)

// createUserRequest is the body for POST /api/v1/users.
type createUserRequest struct {
	Username       string    `json:"username"`
	Password       string    `json:"password"`
	Role           auth.Role `json:"role"`
	AllowedDevices []int     `json:"allowed_devices"`
}

// handleListUsers returns all accounts. Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(requestToken(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleCreateUser creates an account. Admin only.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}

	err := s.service.AddUser(r.Context(), requestToken(r), req.Username, req.Password, req.Role, req.AllowedDevices)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"username": req.Username})
}

// updateUserRequest is the body for PATCH /api/v1/users/{username}.
// Omitted fields are left untouched; allowed_devices replaces the whole
// allowlist when present.
type updateUserRequest struct {
	Password       *string    `json:"password,omitempty"`
	Role           *auth.Role `json:"role,omitempty"`
	AllowedDevices []int      `json:"allowed_devices,omitempty"`
}

// handleUpdateUser applies a partial update to an account. Admin only.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	upd := auth.UserUpdate{
		Password: req.Password,
		Role:     req.Role,
	}
	if req.AllowedDevices != nil {
		upd.AllowedDevices = req.AllowedDevices
		upd.SetAllowed = true
	}

	if err := s.service.UpdateUser(r.Context(), requestToken(r), username, upd); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": username})
}

// handleDeleteUser removes an account and its live sessions. Admin only.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := s.service.DeleteUser(r.Context(), requestToken(r), username); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": username, "deleted": true})
}
