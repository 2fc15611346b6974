// Package models defines the identity types shared by the client-side auth
// subsystem.
package models

import "time"

// LocalUser is a device-resident identity record not known to the remote
// backend. At most one record exists per distinct email value.
type LocalUser struct {
	ID         string
	Email      string
	CreatedAt  time.Time
	LastSignIn time.Time

	// Salt and Verifier are only populated when local password
	// verification is enabled; by default the offline path does not store
	// or compare secrets.
	Salt     []byte
	Verifier []byte
}

// User is the normalized shape exposed to consumers regardless of where the
// session came from.
type User struct {
	ID         string
	Email      string
	CreatedAt  time.Time
	LastSignIn time.Time
}

// SessionSource tags where the active session originated.
type SessionSource string

const (
	SourceRemote SessionSource = "remote"
	SourceLocal  SessionSource = "local"
)

// Session is the unified in-memory session owned by the session arbiter.
// Exactly one source is active at a time.
type Session struct {
	User   *User
	Source SessionSource
}

// RemoteSession is what the remote identity backend hands out: a token pair
// plus the authenticated user.
type RemoteSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *User
}

// NormalizeLocal converts a LocalUser into the unified user shape.
func NormalizeLocal(u *LocalUser) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:         u.ID,
		Email:      u.Email,
		CreatedAt:  u.CreatedAt,
		LastSignIn: u.LastSignIn,
	}
}
