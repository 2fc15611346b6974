// Package common defines shared constants and sentinel errors used across
// client and server layers of StockPilot. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Local credential store errors.
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrDuplicateAccount   = errors.New("account already exists")

	// Offline authentication. Intentionally generic: callers must not be
	// able to tell whether the email or the password was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
