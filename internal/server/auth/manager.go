// Package auth mints and verifies the HS256 access and refresh tokens.
//
// Verification classifies every failure as exactly one of
// common.ErrTokenInvalid or common.ErrTokenExpired. A token is expired only if
// its signature checks out and its exp has been reached; anything else that
// fails (bad signature, wrong algorithm, wrong issuer, wrong token type) is
// invalid.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultIssuer     = "shelfauth"
)

var ErrEmptySecret = errors.New("jwt signing secret is empty")

// TokenType is carried in the "typ" claim so that a refresh token can never
// be presented as an access token and vice versa.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

type AccessClaims struct {
	UserID   int64     `json:"userId"`
	RoleID   int64     `json:"roleId"`
	RoleName string    `json:"roleName"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID int64     `json:"userId"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type Manager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for both signing and verification.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// WithTTL overrides token lifetimes; zero values keep the defaults.
func WithTTL(access, refresh time.Duration) Option {
	return func(m *Manager) {
		if access > 0 {
			m.accessTTL = access
		}
		if refresh > 0 {
			m.refreshTTL = refresh
		}
	}
}

// NewManager fails when no secret is configured, so a misconfigured server
// refuses to start instead of rejecting every request.
func NewManager(secret []byte, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	m := &Manager{
		secret:     append([]byte(nil), secret...),
		issuer:     DefaultIssuer,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueTokens mints an access token carrying the principal's role and a
// refresh token carrying only the user id.
func (m *Manager) IssueTokens(p models.Principal) (TokenPair, error) {
	access, accessExp, err := m.IssueAccessToken(p)
	if err != nil {
		return TokenPair{}, err
	}

	now := m.now()
	refreshExp := now.Add(m.refreshTTL)
	refresh, err := m.sign(RefreshClaims{
		UserID:           p.UserID,
		Type:             RefreshToken,
		RegisteredClaims: m.registered(p.UserID, now, refreshExp),
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: jwt.NewNumericDate(refreshExp).Time,
	}, nil
}

// IssueAccessToken mints only an access token; refresh uses it, since
// refresh tokens are not rotated.
func (m *Manager) IssueAccessToken(p models.Principal) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.accessTTL)
	token, err := m.sign(AccessClaims{
		UserID:           p.UserID,
		RoleID:           p.RoleID,
		RoleName:         p.RoleName,
		Type:             AccessToken,
		RegisteredClaims: m.registered(p.UserID, now, exp),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, jwt.NewNumericDate(exp).Time, nil
}

func (m *Manager) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, claims, func() bool { return claims.Type == AccessToken }); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(token, claims, func() bool { return claims.Type == RefreshToken }); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) registered(userID int64, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// parse verifies signature first, then claims. typeOK runs against the decoded
// claims, which jwt fills in even when it reports expiry.
func (m *Manager) parse(token string, claims jwt.Claims, typeOK func() bool) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil && parsed.Valid:
		if !typeOK() {
			return common.ErrTokenInvalid
		}
		return nil
	case onlyExpired(err):
		if !typeOK() {
			return common.ErrTokenInvalid
		}
		return common.ErrTokenExpired
	default:
		return common.ErrTokenInvalid
	}
}

// onlyExpired reports whether expiry is the sole claim failure. jwt joins all
// validation errors, so an expired token from another issuer stays invalid.
func onlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	return !errors.Is(err, jwt.ErrTokenInvalidIssuer) &&
		!errors.Is(err, jwt.ErrTokenNotValidYet) &&
		!errors.Is(err, jwt.ErrTokenUsedBeforeIssued)
}
