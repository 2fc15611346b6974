// Package users stores identity server accounts.
package users

import (
	"context"

	"github.com/vposukhov/stockpilot/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate email yields
	// common.ErrDuplicateAccount.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the account with the given email, or
	// common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the account with the given id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
