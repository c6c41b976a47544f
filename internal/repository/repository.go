package repository

import (
	"context"

	"github.com/guardkit/guardkit/internal/domain"
)

// UserRepository defines the persistence contract for user accounts. Lookups
// return apperrors.ErrNotFound when no record matches.
type UserRepository interface {
	// Create inserts a new user and fills in the store-assigned ID and
	// timestamps on the passed struct.
	Create(ctx context.Context, user *domain.User) error

	// GetByID fetches a user by numeric ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail fetches a user by email, the login identifier.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
