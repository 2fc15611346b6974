package users

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vposukhov/stockpilot/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:usersrepo_"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE offline_users (
  id           TEXT PRIMARY KEY,
  email        TEXT NOT NULL UNIQUE,
  created_at   TIMESTAMP NOT NULL,
  last_sign_in TIMESTAMP NOT NULL,
  salt         BLOB,
  verifier     BLOB
);
`)
	require.NoError(t, err)
	return db
}

func TestList_EmptyStoreReturnsEmptySlice(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func TestAdd_CreatesRecordWithFreshIDAndTimestamps(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	u, err := repo.Add(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "new@example.com", u.Email)
	require.False(t, u.CreatedAt.IsZero())
	require.Equal(t, u.CreatedAt, u.LastSignIn)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "new@example.com", all[0].Email)
}

func TestAdd_RejectsInvalidEmail(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	_, err := repo.Add(context.Background(), "invalid-email")
	require.ErrorIs(t, err, common.ErrInvalidEmailFormat)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestAdd_RejectsDuplicateEmail(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := repo.Add(ctx, "dup@example.com")
	require.NoError(t, err)

	_, err = repo.Add(ctx, "dup@example.com")
	require.ErrorIs(t, err, common.ErrDuplicateAccount)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestAdd_EmailCaseIsSignificant(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := repo.Add(ctx, "user@example.com")
	require.NoError(t, err)

	// uniqueness is byte-exact, so a different casing is a distinct account
	_, err = repo.Add(ctx, "User@example.com")
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestGetByEmail_ExactMatchOnly(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	created, err := repo.Add(ctx, "user@example.com")
	require.NoError(t, err)

	got, err := repo.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	created, err := repo.Add(ctx, "user@example.com")
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", got.Email)

	_, err = repo.GetByID(ctx, "no-such-id")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTouchLastSignIn(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	created, err := repo.Add(ctx, "user@example.com")
	require.NoError(t, err)

	later := created.LastSignIn.Add(time.Hour)
	require.NoError(t, repo.TouchLastSignIn(ctx, created.ID, later))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.LastSignIn.After(created.LastSignIn))

	require.ErrorIs(t, repo.TouchLastSignIn(ctx, "no-such-id", later), common.ErrNotFound)
}

func TestSetCredential(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	created, err := repo.Add(ctx, "user@example.com")
	require.NoError(t, err)
	require.Nil(t, created.Verifier)

	require.NoError(t, repo.SetCredential(ctx, created.ID, []byte("salt"), []byte("verifier")))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("salt"), got.Salt)
	require.Equal(t, []byte("verifier"), got.Verifier)

	require.ErrorIs(t, repo.SetCredential(ctx, "no-such-id", nil, nil), common.ErrNotFound)
}
