// Package services contains application services for the shelfauth client.
// This file defines the authentication service the CLI drives: register,
// login, whoami and logout on top of the API client and the session store.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/client/models"
	"github.com/dmitrijs2005/shelfauth/internal/client/session"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
)

// ErrNotLoggedIn is returned by calls that need a session when none is held.
var ErrNotLoggedIn = errors.New("not logged in")

// API is the part of client.APIClient the service uses.
type API interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, email, name, password string) (*api.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*api.User, error)
	WhoAmIAdmin(ctx context.Context) (*api.User, error)
	Ping(ctx context.Context) error
}

// SessionDestroyer is satisfied by client.Coordinator.
type SessionDestroyer interface {
	DestroySession(ctx context.Context) error
}

// AuthService defines authentication operations for the CLI.
//
// Login and Register store a new session on success. WhoAmI asks the
// server and refreshes the local principal snapshot. Logout always ends the
// local session, even when the server cannot be told.
type AuthService interface {
	Register(ctx context.Context, email, name string, password []byte) (*models.Principal, error)
	Login(ctx context.Context, email string, password []byte) (*models.Principal, error)
	WhoAmI(ctx context.Context) (*models.Principal, error)
	AdminWhoAmI(ctx context.Context) (*models.Principal, error)
	Current(ctx context.Context) (*models.Principal, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	api      API
	store    *session.Store
	sessions SessionDestroyer
	logger   logging.Logger
}

func NewAuthService(a API, store *session.Store, sessions SessionDestroyer, logger logging.Logger) AuthService {
	return &authService{api: a, store: store, sessions: sessions, logger: logger.With("module", "auth_service")}
}

func (s *authService) begin(ctx context.Context, out *api.AuthResponse) (*models.Principal, error) {
	p := models.PrincipalFromUser(out.User)
	err := s.store.Save(ctx, models.Session{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		Principal:    &p,
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &p, nil
}

func (s *authService) Register(ctx context.Context, email, name string, password []byte) (*models.Principal, error) {
	out, err := s.api.Register(ctx, email, name, string(password))
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, out)
}

func (s *authService) Login(ctx context.Context, email string, password []byte) (*models.Principal, error) {
	out, err := s.api.Login(ctx, email, string(password))
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, out)
}

func (s *authService) WhoAmI(ctx context.Context) (*models.Principal, error) {
	return s.whoami(ctx, s.api.Me)
}

func (s *authService) AdminWhoAmI(ctx context.Context) (*models.Principal, error) {
	return s.whoami(ctx, s.api.WhoAmIAdmin)
}

func (s *authService) whoami(ctx context.Context, call func(context.Context) (*api.User, error)) (*models.Principal, error) {
	rt, err := s.store.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	if rt == "" {
		return nil, ErrNotLoggedIn
	}

	u, err := call(ctx)
	if err != nil {
		return nil, err
	}

	p := models.PrincipalFromUser(*u)
	if err := s.store.SetPrincipal(ctx, p); err != nil {
		s.logger.Warn(ctx, "principal snapshot not saved", "error", err)
	}
	return &p, nil
}

// Current returns the locally stored principal, or nil when logged out.
func (s *authService) Current(ctx context.Context) (*models.Principal, error) {
	return s.store.Principal(ctx)
}

func (s *authService) Logout(ctx context.Context) error {
	rt, err := s.store.RefreshToken(ctx)
	if err != nil {
		return err
	}

	var remote error
	if rt != "" {
		remote = s.api.Logout(ctx, rt)
		if remote != nil {
			s.logger.Warn(ctx, "server logout failed", "error", remote)
		}
	}

	if err := s.sessions.DestroySession(ctx); err != nil {
		return err
	}
	if remote != nil {
		return fmt.Errorf("logged out locally, server logout: %w", remote)
	}
	return nil
}

func (s *authService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx)
}
