// Package users is the local credential store: device-resident user records
// keyed by email. It is the sole writer of the offline_users table.
package users

import (
	"context"
	"time"

	"github.com/vposukhov/stockpilot/internal/client/models"
)

type Repository interface {
	// List returns all local records; an empty store yields an empty slice.
	List(ctx context.Context) ([]*models.LocalUser, error)

	// GetByEmail looks a record up by exact, case-sensitive email match.
	// Returns common.ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.LocalUser, error)

	// GetByID resolves the persisted current-session pointer.
	GetByID(ctx context.Context, id string) (*models.LocalUser, error)

	// Add validates the email shape and uniqueness, then creates a record
	// with a fresh id and createdAt/lastSignIn set to now. Fails with
	// common.ErrInvalidEmailFormat or common.ErrDuplicateAccount.
	Add(ctx context.Context, email string) (*models.LocalUser, error)

	// TouchLastSignIn updates lastSignIn for an existing record.
	TouchLastSignIn(ctx context.Context, id string, when time.Time) error

	// SetCredential stores the optional local password verifier.
	SetCredential(ctx context.Context, id string, salt, verifier []byte) error
}
