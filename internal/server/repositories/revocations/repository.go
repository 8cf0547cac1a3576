// Package revocations stores refresh tokens that were explicitly logged out.
// Tokens are keyed by their jti and only need to be remembered until they
// would have expired on their own.
package revocations

import (
	"context"
	"time"
)

type Repository interface {
	// Revoke records jti as unusable until expiresAt. Revoking the same jti
	// twice is not an error.
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error

	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpired drops records whose expiry is before now and returns how
	// many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
