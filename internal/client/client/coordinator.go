package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshTimeout = 10 * time.Second
	refreshKey            = "refresh"
)

// Refresher exchanges a refresh token for a new access token.
// *APIClient satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// SessionStore is the part of session.Store the Coordinator needs.
type SessionStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Coordinator is an http.RoundTripper that attaches the stored access token,
// refreshes it when the server reports it expired and replays the request
// once. However many requests fail at the same time, only one refresh call
// is in flight. When the session cannot be recovered it is destroyed and
// OnSessionEnded is called once.
type Coordinator struct {
	base           http.RoundTripper
	store          SessionStore
	refresher      Refresher
	logger         logging.Logger
	refreshTimeout time.Duration
	onSessionEnded func(cause error)

	flight singleflight.Group
	mu     sync.Mutex
}

type CoordinatorOption func(*Coordinator)

// WithBaseTransport sets the transport requests are sent through.
// Defaults to http.DefaultTransport.
func WithBaseTransport(rt http.RoundTripper) CoordinatorOption {
	return func(c *Coordinator) { c.base = rt }
}

func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.refreshTimeout = d }
}

func WithLogger(l logging.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l.With("module", "coordinator") }
}

// OnSessionEnded registers a hook called after the session was destroyed by
// a terminal failure. cause is one of the common token errors or
// common.ErrRefreshUnavailable.
func OnSessionEnded(fn func(cause error)) CoordinatorOption {
	return func(c *Coordinator) { c.onSessionEnded = fn }
}

func NewCoordinator(store SessionStore, refresher Refresher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		base:           http.DefaultTransport,
		store:          store,
		refresher:      refresher,
		logger:         logging.NewNop(),
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach sets the Authorization header from the store and returns the token
// it used. Without a stored token the request is left untouched.
func (c *Coordinator) Attach(req *http.Request) (string, error) {
	token, err := c.store.AccessToken(req.Context())
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return token, nil
}

// RoundTrip implements http.RoundTripper. When a 401 ends the session the
// response is consumed and an error wrapping ErrSessionEnded is returned in
// its place; http.Client reports it as a *url.Error.
func (c *Coordinator) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if err := rewindable(r); err != nil {
		return nil, err
	}

	stale, err := c.Attach(r)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	resp, err := c.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	return c.OnUnauthorized(r, resp, stale)
}

// OnUnauthorized handles a 401 for req, which was sent with staleToken.
// An expired token is refreshed and req is replayed exactly once; any other
// reason, or a second 401, ends the session.
func (c *Coordinator) OnUnauthorized(req *http.Request, resp *http.Response, staleToken string) (*http.Response, error) {
	ctx := req.Context()

	cause := reasonError(readReason(resp))
	if !errors.Is(cause, common.ErrTokenExpired) {
		return nil, c.endSession(ctx, cause)
	}

	token, err := c.Refresh(ctx, staleToken)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrSessionEnded) {
			return nil, err
		}
		return nil, c.endSession(ctx, err)
	}

	replay := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		replay.Body = body
	}
	replay.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	resp, err = c.base.RoundTrip(replay)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.endSession(ctx, reasonError(readReason(resp)))
	}
	return resp, nil
}

// Refresh returns a fresh access token. If the stored token already differs
// from staleToken, another caller refreshed it and no call is made.
// Otherwise the caller joins the one in-flight refresh or starts it. The
// shared refresh is detached from ctx: a caller giving up does not cancel it
// for the others. Failure destroys the session and returns an error wrapping
// ErrSessionEnded and common.ErrRefreshUnavailable.
func (c *Coordinator) Refresh(ctx context.Context, staleToken string) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(refreshKey, func() (any, error) {
		return c.refresh(detached, staleToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) refresh(ctx context.Context, staleToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	current, err := c.store.AccessToken(ctx)
	if err != nil {
		return "", c.refreshFailed(ctx, err)
	}
	if current != "" && current != staleToken {
		return current, nil
	}

	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", c.refreshFailed(ctx, err)
	}
	if refreshToken == "" {
		return "", c.refreshFailed(ctx, errors.New("no refresh token"))
	}

	token, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", c.refreshFailed(ctx, err)
	}
	stored, err := c.storeToken(ctx, refreshToken, token)
	if err != nil {
		return "", c.refreshFailed(ctx, err)
	}
	if !stored {
		c.logger.Info(ctx, "session changed during refresh, dropping new access token")
		return "", fmt.Errorf("%w: %w", ErrSessionEnded, common.ErrRefreshUnavailable)
	}

	c.logger.Debug(ctx, "access token refreshed")
	return token, nil
}

// storeToken saves accessToken only if the session still holds refreshToken.
// A logout or a new login while the refresh was in flight wins.
func (c *Coordinator) storeToken(ctx context.Context, refreshToken, accessToken string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.store.RefreshToken(ctx)
	if err != nil {
		return false, err
	}
	if current != refreshToken {
		return false, nil
	}
	return true, c.store.SetAccessToken(ctx, accessToken)
}

func (c *Coordinator) refreshFailed(ctx context.Context, err error) error {
	c.logger.Warn(ctx, "token refresh failed", "error", err)
	ended := c.endSession(ctx, common.ErrRefreshUnavailable)
	if errors.Is(err, common.ErrRefreshUnavailable) {
		return fmt.Errorf("%w: %w", ErrSessionEnded, err)
	}
	return fmt.Errorf("%w: %w", ended, err)
}

// DestroySession clears both tokens and the principal. It does not call
// OnSessionEnded and is safe to call on an empty store.
func (c *Coordinator) DestroySession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Clear(ctx)
}

// endSession destroys the session and fires the hook if there was a session
// to destroy, so concurrent terminal failures report once.
func (c *Coordinator) endSession(ctx context.Context, cause error) error {
	c.mu.Lock()
	rt, _ := c.store.RefreshToken(ctx)
	at, _ := c.store.AccessToken(ctx)
	had := rt != "" || at != ""
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error(ctx, "clear session", "error", err)
	}
	c.mu.Unlock()

	if had {
		c.logger.Info(ctx, "session ended", "cause", cause.Error())
		if c.onSessionEnded != nil {
			c.onSessionEnded(cause)
		}
	}
	return fmt.Errorf("%w: %w", ErrSessionEnded, cause)
}

// rewindable makes sure req.Body can be sent twice.
func rewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return nil
}
