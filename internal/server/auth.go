package server

import (
	"net/http"
	"strings"

	krishi "github.com/krishihq/krishi/internal"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *krishi.User `json:"user"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if len(req.Username) < 3 {
		writeJSON(w, http.StatusBadRequest, errorResponse("username must be at least 3 characters"))
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, errorResponse("valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, errorResponse("password must be at least 8 characters"))
		return
	}

	u, err := s.deps.Auth.Register(r.Context(), req.Username, req.Email, req.FullName, req.Password)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("username and password are required"))
		return
	}

	token, u, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, errorStatus(err), errorResponse("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := krishi.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, id)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.deps.Auth.Logout(r.Context(), raw); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
