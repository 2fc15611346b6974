// Package models defines the identity server's persistence types.
package models

import "time"

// User is a registered account on the identity backend.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// RefreshToken is a server-stored, single-use refresh token.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
