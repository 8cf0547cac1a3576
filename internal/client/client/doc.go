// Package client contains the client-side building blocks for shelfauth.
//
// # Overview
//
//  1. APIClient speaks the HTTP/JSON contract of internal/api and maps every
//     status to a sentinel error (see APIError).
//  2. Coordinator is an http.RoundTripper for protected calls. It attaches the
//     stored access token, refreshes it once when the server answers
//     "Token expired", replays the request, and ends the session when
//     recovery is impossible.
//  3. InitDatabase and RunMigrations open the SQLite file the session lives in.
//
// # Refresh
//
// Concurrent 401s share a single refresh call. A caller whose 401 arrives
// after the refresh has finished picks up the stored token without another
// call. The shared call runs detached from the callers' contexts, bounded by
// WithRefreshTimeout.
//
// # Error Handling
//
// Terminal failures wrap ErrSessionEnded together with the cause
// (common.ErrTokenInvalid, common.ErrPrincipalNotFound, common.ErrTokenExpired
// after a replay, or common.ErrRefreshUnavailable). By the time such an error
// is returned the store is empty and the OnSessionEnded hook has run once.
package client
