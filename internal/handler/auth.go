package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/auth"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/service"
)

// AuthHandler exposes the account endpoints: register, login, logout,
// session restore, and profile updates.
//
// RESPONSE SHAPE:
// Every successful auth operation returns {"user": ..., "token": "..."} so
// the client can store both in one step. Restore reuses the presented token
// rather than minting a new one.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleRegister creates an account and opens a session.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email":..., "password":..., "firstName":..., "lastName":..., "phone":...}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.auth.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

// HandleLogin verifies credentials and opens a session.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// HandleLogout ends the presented session. Always succeeds — logging out
// with a stale token is not an error worth surfacing to the user.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		// Nothing to end; treat as already logged out.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRestore re-validates a persisted session token and returns the
// account it belongs to. 401 means the client should drop its saved token
// and show the login screen.
//
// HTTP: GET /api/auth/session
func (h *AuthHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		writeError(w, apperror.NoSavedSession())
		return
	}

	result, err := h.auth.Restore(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// HandleUpdateProfile applies a partial profile update to the
// authenticated user. Absent fields are left untouched; a field set to an
// empty string is a validation error for names, allowed for phone/avatar.
//
// HTTP: PATCH /api/auth/profile
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var update model.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
