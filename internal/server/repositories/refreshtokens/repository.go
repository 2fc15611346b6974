// Package refreshtokens stores the server-side half of issued refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/vposukhov/stockpilot/internal/server/models"
)

type Repository interface {
	// Create inserts a refresh token for userID expiring at now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns the token row, or common.ErrNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token. Removing an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteForUser removes all tokens of a user, revoking its sessions.
	DeleteForUser(ctx context.Context, userID string) error
}
