// Package common defines shared constants and sentinel errors used across
// client and server layers of shelfauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Token validation taxonomy. Each kind drives a different client reaction:
	// ErrTokenExpired is recoverable by a refresh, the other two end the session.
	ErrTokenInvalid      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrPrincipalNotFound = errors.New("user not found")

	// ErrRefreshUnavailable means no refresh token is held or the refresh
	// call failed for any reason. Always terminal.
	ErrRefreshUnavailable = errors.New("refresh unavailable")

	// Credential check outcomes.
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrWeakPassword           = errors.New("weak password")
)
