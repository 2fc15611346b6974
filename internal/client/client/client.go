// Package client talks to the remote identity backend and owns the locally
// cached remote session (token pair). The session arbiter consumes it
// through the narrow Client interface and observes session changes via
// Watch.
package client

import (
	"context"

	"github.com/vposukhov/stockpilot/internal/client/models"
)

type Client interface {
	Close() error

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	// SignUp creates a new remote account.
	SignUp(ctx context.Context, email, password string) error

	// SignIn exchanges credentials for a remote session.
	SignIn(ctx context.Context, email, password string) (*models.RemoteSession, error)

	// SignOut revokes the remote session. The locally cached token pair is
	// dropped even when the backend call fails.
	SignOut(ctx context.Context) error

	// CurrentSession restores the cached remote session, or (nil, nil)
	// when none is valid.
	CurrentSession(ctx context.Context) (*models.RemoteSession, error)

	// Watch subscribes to session-change notifications. A nil value on the
	// channel means "signed out". The returned function unsubscribes.
	Watch() (<-chan *models.RemoteSession, func())
}
