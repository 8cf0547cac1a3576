// Package services contains server-side business logic. AuthService owns the
// credential check and the token lifecycle: issuing, validating and
// refreshing tokens, plus optional refresh-token revocation on logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/cryptox"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"github.com/dmitrijs2005/shelfauth/internal/server/auth"
	"github.com/dmitrijs2005/shelfauth/internal/server/metrics"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"github.com/dmitrijs2005/shelfauth/internal/server/password"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/revocations"
)

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.Manager
	policy      password.Policy
	hashParams  cryptox.Params
	revoked     revocations.Repository
	metrics     *metrics.Metrics
	logger      logging.Logger
	now         func() time.Time

	// compared against when the email is unknown so both paths cost one
	// argon2 derivation
	dummyHash string
}

type AuthOption func(*AuthService)

func WithPasswordPolicy(p password.Policy) AuthOption {
	return func(s *AuthService) { s.policy = p }
}

func WithHashParams(p cryptox.Params) AuthOption {
	return func(s *AuthService) { s.hashParams = p }
}

// WithRevocations enables logout revocation backed by repo. Without it,
// refresh tokens stay valid until they expire.
func WithRevocations(repo revocations.Repository) AuthOption {
	return func(s *AuthService) { s.revoked = repo }
}

func WithMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// WithServiceClock is used by tests together with auth.WithClock.
func WithServiceClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.Manager, logger logging.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		policy:      password.DefaultPolicy(),
		hashParams:  cryptox.DefaultParams,
		logger:      logger.With("module", "auth_service"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.dummyHash = cryptox.HashPassword("shelfauth-dummy-password", s.hashParams)
	return s
}

// RevocationEnabled reports whether logout actually invalidates refresh tokens.
func (s *AuthService) RevocationEnabled() bool { return s.revoked != nil }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a member account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, email, name, pw string) (*models.User, auth.TokenPair, error) {
	if err := s.policy.Validate(pw); err != nil {
		return nil, auth.TokenPair{}, err
	}

	user := &models.User{
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: cryptox.HashPassword(pw, s.hashParams),
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, user, common.DefaultRoleName)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, auth.TokenPair{}, common.ErrEmailAlreadyRegistered
		}
		s.logger.Error(ctx, "error creating user", "error", err)
		return nil, auth.TokenPair{}, common.ErrorInternal
	}

	pair, err := s.issue(u.Principal())
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "user_id", u.ID, "error", err)
		return nil, auth.TokenPair{}, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, pair, nil
}

// Login checks the password and issues a token pair. Unknown email and wrong
// password both yield common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, pw string) (*models.User, auth.TokenPair, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(pw, s.dummyHash)
			return nil, auth.TokenPair{}, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "error loading user", "error", err)
		return nil, auth.TokenPair{}, common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(pw, u.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "user_id", u.ID, "error", err)
		return nil, auth.TokenPair{}, common.ErrorInternal
	}
	if !ok {
		return nil, auth.TokenPair{}, common.ErrInvalidCredentials
	}

	pair, err := s.issue(u.Principal())
	if err != nil {
		s.logger.Error(ctx, "error issuing tokens", "user_id", u.ID, "error", err)
		return nil, auth.TokenPair{}, common.ErrorInternal
	}
	return u, pair, nil
}

// ValidateAccessToken verifies the token and reloads the user, so the
// returned principal carries the role as it is now, not as it was at issue.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		s.metrics.ValidationFailed(metrics.FailureKind(err))
		return nil, err
	}

	u, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		s.metrics.ValidationFailed(metrics.FailureKind(err))
		return nil, err
	}

	p := u.Principal()
	return &p, nil
}

// ValidateRefreshToken returns the user id the refresh token was issued to.
func (s *AuthService) ValidateRefreshToken(ctx context.Context, token string) (int64, error) {
	claims, err := s.validateRefresh(ctx, token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (s *AuthService) validateRefresh(ctx context.Context, token string) (*auth.RefreshClaims, error) {
	claims, err := s.tokens.ParseRefresh(token)
	if err != nil {
		s.metrics.ValidationFailed(metrics.FailureKind(err))
		return nil, err
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error(ctx, "revocation lookup failed", "error", err)
			return nil, common.ErrorInternal
		}
		if revoked {
			s.metrics.ValidationFailed(metrics.KindRevoked)
			return nil, fmt.Errorf("refresh token revoked: %w", common.ErrTokenInvalid)
		}
	}

	return claims, nil
}

// Refresh mints a new access token for a valid refresh token. The refresh
// token itself is not rotated and stays usable until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		s.refreshRejected(ctx, err)
		return "", err
	}

	u, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		s.refreshRejected(ctx, err)
		return "", err
	}

	access, _, err := s.tokens.IssueAccessToken(u.Principal())
	if err != nil {
		s.metrics.Refreshed(metrics.OutcomeError)
		s.logger.Error(ctx, "error issuing access token", "user_id", u.ID, "error", err)
		return "", common.ErrorInternal
	}

	s.metrics.TokenIssued(string(auth.AccessToken))
	s.metrics.Refreshed(metrics.OutcomeSuccess)
	return access, nil
}

func (s *AuthService) refreshRejected(ctx context.Context, err error) {
	if errors.Is(err, common.ErrorInternal) {
		s.metrics.Refreshed(metrics.OutcomeError)
		return
	}
	s.metrics.Refreshed(metrics.OutcomeRejected)
	s.logger.Info(ctx, "refresh rejected", "kind", metrics.FailureKind(err))
}

// Logout revokes the refresh token when revocation is enabled. Tokens that
// fail validation are ignored, there is nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if s.revoked == nil {
		s.logger.Debug(ctx, "logout without revocation backend, refresh token stays valid until expiry")
		return nil
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error(ctx, "error revoking refresh token", "user_id", claims.UserID, "error", err)
		return common.ErrorInternal
	}
	s.logger.Info(ctx, "refresh token revoked", "user_id", claims.UserID)
	return nil
}

// CurrentUser loads the full user record for an authenticated principal.
func (s *AuthService) CurrentUser(ctx context.Context, p models.Principal) (*models.User, error) {
	return s.loadUser(ctx, p.UserID)
}

// PurgeRevocations drops revocation records for tokens that have expired.
func (s *AuthService) PurgeRevocations(ctx context.Context) (int64, error) {
	if s.revoked == nil {
		return 0, nil
	}
	return s.revoked.PurgeExpired(ctx, s.now())
}

func (s *AuthService) loadUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrPrincipalNotFound
		}
		s.logger.Error(ctx, "error loading user", "user_id", id, "error", err)
		return nil, common.ErrorInternal
	}
	return u, nil
}

func (s *AuthService) issue(p models.Principal) (auth.TokenPair, error) {
	pair, err := s.tokens.IssueTokens(p)
	if err != nil {
		return auth.TokenPair{}, err
	}
	s.metrics.TokenIssued(string(auth.AccessToken))
	s.metrics.TokenIssued(string(auth.RefreshToken))
	return pair, nil
}
