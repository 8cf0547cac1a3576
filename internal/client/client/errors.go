package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/common"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrBadRequest  = errors.New("bad request")
	ErrForbidden   = errors.New("forbidden")

	// ErrSessionEnded wraps every terminal authentication failure. When it is
	// returned the local session is already gone.
	ErrSessionEnded = errors.New("session ended")
)

// APIError is a non-success response. Err is the sentinel the status and
// reason map to, so callers match with errors.Is.
type APIError struct {
	Status int
	Reason string
	Err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d: %s)", e.Err, e.Status, e.Reason)
}

func (e *APIError) Unwrap() error { return e.Err }

// reasonError maps the reason of a 401 from a protected endpoint. Unknown
// reasons are treated as an invalid token.
func reasonError(reason string) error {
	switch reason {
	case api.ReasonTokenExpired:
		return common.ErrTokenExpired
	case api.ReasonUserNotFound:
		return common.ErrPrincipalNotFound
	default:
		return common.ErrTokenInvalid
	}
}
