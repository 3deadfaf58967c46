package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/relaycore/internal/auth"
)

// loginRequest is the body for POST /api/v1/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the minted session token. The same token is also set
// as an HttpOnly cookie for browser clients.
type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// handleLogin authenticates credentials and mints a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	token, err := s.service.Login(req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTimeout.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		Username: req.Username,
	})
}

// handleLogout invalidates the caller's session. Always succeeds, even for
// unknown tokens, so a stale client can always reach a logged-out state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r); token != "" {
		s.service.Logout(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
