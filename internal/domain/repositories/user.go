package repositories

import (
	"context"

	"foldershare/internal/domain/models"
)

// UserRepository defines data access operations for users
type UserRepository interface {
	// Create inserts a user; duplicate name or email is domain.ErrConflict
	Create(ctx context.Context, user *models.User) error

	// Upsert inserts the user with its preset ID, or refreshes the email of
	// the existing row with that ID. user is overwritten with the stored row.
	// A name or email taken by another user is domain.ErrConflict.
	Upsert(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email (case-insensitive)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
