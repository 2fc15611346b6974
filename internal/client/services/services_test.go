package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/client/repositories/metadata"
	"github.com/vposukhov/stockpilot/internal/client/repositories/users"
	"github.com/vposukhov/stockpilot/internal/logging"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:svc_"+t.Name()+"?mode=memory&cache=shared")
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
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

type testStores struct {
	users users.Repository
	meta  metadata.Repository
}

func setupStores(t *testing.T) testStores {
	t.Helper()
	db := setupDB(t)
	return testStores{
		users: users.NewSQLiteRepository(db),
		meta:  metadata.NewSQLiteRepository(db),
	}
}

func discardLogger() logging.Logger {
	return logging.NewTextLogger(io.Discard, slog.LevelError)
}

// ---- fake remote client ----

type fakeRemote struct {
	mu sync.Mutex

	CurrentRet *models.RemoteSession
	CurrentErr error

	SignInRet *models.RemoteSession
	SignInErr error

	SignOutErr error
	PingErr    error

	LastSignInEmail    string
	LastSignInPassword string
	SignOutCalls       int
	CurrentCalls       int

	watchCh chan *models.RemoteSession
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{watchCh: make(chan *models.RemoteSession, 8)}
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeRemote) SignUp(ctx context.Context, email, password string) error { return nil }

func (f *fakeRemote) SignIn(ctx context.Context, email, password string) (*models.RemoteSession, error) {
	f.mu.Lock()
	f.LastSignInEmail = email
	f.LastSignInPassword = password
	f.mu.Unlock()
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	return f.SignInRet, nil
}

func (f *fakeRemote) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	f.mu.Unlock()
	return f.SignOutErr
}

func (f *fakeRemote) CurrentSession(ctx context.Context) (*models.RemoteSession, error) {
	f.mu.Lock()
	f.CurrentCalls++
	f.mu.Unlock()
	return f.CurrentRet, f.CurrentErr
}

func (f *fakeRemote) Watch() (<-chan *models.RemoteSession, func()) {
	return f.watchCh, func() {}
}

func (f *fakeRemote) emit(s *models.RemoteSession) { f.watchCh <- s }

func remoteSession(id, email string) *models.RemoteSession {
	return &models.RemoteSession{
		AccessToken: "token",
		User:        &models.User{ID: id, Email: email},
	}
}
