package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/guardkit/guardkit/internal/domain"
	"github.com/guardkit/guardkit/internal/service"
)

// UserHandler serves the profile endpoint under /api/v1/users.
type UserHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewUserHandler builds the profile handler.
func NewUserHandler(svc *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// UserResponse is the public shape of a user account. The credential hash and
// internal timestamps never leave the service.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// GetProfile serves GET /api/v1/users/me, returning the account behind the
// presented access token.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newUserResponse(user)})
}
