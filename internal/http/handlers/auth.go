package handlers

import (
	"net/http"

	"github.com/safezone/server/internal/apperr"
	"github.com/safezone/server/internal/auth"
	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/middleware"
	"github.com/safezone/server/internal/validate"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) error {
	in, err := validate.Decode[auth.SignupInput](r.Context())
	if err != nil {
		return err
	}
	session, err := h.authService.Signup(r.Context(), in)
	if err != nil {
		return err
	}
	response.Created(w, "User signed up successfully", session)
	return nil
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	in, err := validate.Decode[auth.LoginInput](r.Context())
	if err != nil {
		return err
	}
	session, err := h.authService.Login(r.Context(), in)
	if err != nil {
		return err
	}
	response.OK(w, "User logged in successfully", session)
	return nil
}

// Me handles GET /user/me (protected). Returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) error {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return apperr.Unauthorized("Authorization token missing")
	}
	response.OK(w, "Current user fetched successfully", user)
	return nil
}
