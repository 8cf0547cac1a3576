package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/common"
)

const maxErrorBody = 64 << 10

// APIClient talks to the shelfauth HTTP API. The auth endpoints go through
// a plain client; protected endpoints go through authed, whose transport is
// normally a Coordinator.
type APIClient struct {
	baseURL string
	plain   *http.Client
	authed  *http.Client
}

// NewAPIClient builds a client with the same http.Client for both kinds of
// endpoint. Use WithAuthedClient to route protected calls elsewhere.
func NewAPIClient(baseURL string, hc *http.Client) *APIClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), plain: hc, authed: hc}
}

// WithAuthedClient sets the client used for protected endpoints.
func (c *APIClient) WithAuthedClient(hc *http.Client) *APIClient {
	c.authed = hc
	return c
}

func (c *APIClient) send(ctx context.Context, hc *http.Client, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, ErrSessionEnded) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

func decodeBody(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL.Path, err)
	}
	return nil
}

// readReason consumes and closes the body of an error response.
func readReason(resp *http.Response) string {
	defer resp.Body.Close()
	var e api.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&e)
	return e.Error
}

// statusError maps statuses that mean the same thing on every endpoint.
func statusError(resp *http.Response) error {
	reason := readReason(resp)
	var err error
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		err = ErrBadRequest
	case resp.StatusCode == http.StatusForbidden:
		err = ErrForbidden
	case resp.StatusCode == http.StatusUnauthorized:
		err = reasonError(reason)
	case resp.StatusCode >= 500:
		err = ErrUnavailable
	default:
		err = common.ErrorInternal
	}
	return &APIError{Status: resp.StatusCode, Reason: reason, Err: err}
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	resp, err := c.send(ctx, c.plain, http.MethodPost, api.PathLogin, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out api.AuthResponse
		if err := decodeBody(resp, &out); err != nil {
			return nil, err
		}
		return &out, nil
	case http.StatusUnauthorized:
		return nil, &APIError{Status: resp.StatusCode, Reason: readReason(resp), Err: common.ErrInvalidCredentials}
	default:
		return nil, statusError(resp)
	}
}

func (c *APIClient) Register(ctx context.Context, email, name, password string) (*api.AuthResponse, error) {
	resp, err := c.send(ctx, c.plain, http.MethodPost, api.PathRegister,
		api.RegisterRequest{Email: email, Name: name, Password: password})
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		var out api.AuthResponse
		if err := decodeBody(resp, &out); err != nil {
			return nil, err
		}
		return &out, nil
	case http.StatusConflict:
		return nil, &APIError{Status: resp.StatusCode, Reason: readReason(resp), Err: common.ErrEmailAlreadyRegistered}
	case http.StatusBadRequest:
		reason := readReason(resp)
		if reason == api.ReasonWeakPassword {
			return nil, &APIError{Status: resp.StatusCode, Reason: reason, Err: common.ErrWeakPassword}
		}
		return nil, &APIError{Status: resp.StatusCode, Reason: reason, Err: ErrBadRequest}
	default:
		return nil, statusError(resp)
	}
}

// Refresh exchanges a refresh token for a new access token. Any 401 means
// the refresh token is no longer usable.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.send(ctx, c.plain, http.MethodPost, api.PathRefresh, api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out api.RefreshResponse
		if err := decodeBody(resp, &out); err != nil {
			return "", err
		}
		if out.AccessToken == "" {
			return "", errors.New("refresh response without access token")
		}
		return out.AccessToken, nil
	case http.StatusUnauthorized:
		return "", &APIError{Status: resp.StatusCode, Reason: readReason(resp), Err: common.ErrRefreshUnavailable}
	default:
		return "", statusError(resp)
	}
}

func (c *APIClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.send(ctx, c.plain, http.MethodPost, api.PathLogout, api.LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		return nil
	}
	return statusError(resp)
}

// Me returns the current user as the server sees it.
func (c *APIClient) Me(ctx context.Context) (*api.User, error) {
	return c.user(ctx, api.PathMe)
}

// WhoAmIAdmin is Me behind the admin guard; non-admins get ErrForbidden.
func (c *APIClient) WhoAmIAdmin(ctx context.Context) (*api.User, error) {
	return c.user(ctx, api.PathWhoAmI)
}

func (c *APIClient) user(ctx context.Context, path string) (*api.User, error) {
	resp, err := c.send(ctx, c.authed, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var out api.UserResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Ping checks /healthz.
func (c *APIClient) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, c.plain, http.MethodGet, api.PathHealth, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return &APIError{Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode), Err: ErrUnavailable}
	}
	resp.Body.Close()
	return nil
}
