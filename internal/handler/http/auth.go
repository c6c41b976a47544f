// Package http exposes the authentication service over JSON HTTP endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/guardkit/guardkit/internal/domain"
	"github.com/guardkit/guardkit/internal/service"
	"github.com/guardkit/guardkit/pkg/validator"
)

// maxBodyBytes caps request bodies. Auth payloads are tiny; anything close to
// this is abuse.
const maxBodyBytes = 1 << 20

// AuthHandler serves the /api/v1/auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler builds the handler for the auth routes.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// RegisterRequest is the register payload. The password floor is enforced
// here so the service layer never sees a trivially weak one.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest carries the refresh token being exchanged.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse pairs the created user with its first tokens.
type AuthResponse struct {
	User   UserResponse      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// decodeBody reads the JSON request body into dst and validates it. On
// failure the 400 envelope has already been written and the handler should
// return.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

// Register serves POST /api/v1/auth/register. A created account answers 201
// with the user and its first token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, tokens, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: AuthResponse{
		User:   newUserResponse(user),
		Tokens: tokens,
	}})
}

// Login serves POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: tokens})
}

// RefreshToken serves POST /api/v1/auth/refresh, exchanging a live refresh
// token for a fresh access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: tokens})
}

// Logout serves POST /api/v1/auth/logout.
//
// Sessions are stateless, so there is no token to revoke; the endpoint
// answers 204 once the account behind the access token is confirmed to still
// exist and be active. Clients discard their tokens.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
