package services

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/cryptox"
	"github.com/dmitrijs2005/shelfauth/internal/dbx"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"github.com/dmitrijs2005/shelfauth/internal/server/auth"
	"github.com/dmitrijs2005/shelfauth/internal/server/metrics"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastHash = cryptox.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc   *AuthService
	rm    *repomanager.InMemoryRepositoryManager
	clock *fakeClock
}

func newFixture(t *testing.T, opts ...AuthOption) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewManager([]byte("k"), auth.WithClock(clock.Now))
	require.NoError(t, err)

	rm := repomanager.NewInMemoryRepositoryManager()
	opts = append([]AuthOption{WithHashParams(fastHash), WithServiceClock(clock.Now)}, opts...)
	return &fixture{
		svc:   NewAuthService(nil, rm, tokens, logging.NewNop(), opts...),
		rm:    rm,
		clock: clock,
	}
}

func (f *fixture) register(t *testing.T) (*models.User, auth.TokenPair) {
	t.Helper()
	u, pair, err := f.svc.Register(context.Background(), " A@B.com ", "Alice", "Secret123")
	require.NoError(t, err)
	return u, pair
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, pair := f.register(t)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, common.DefaultRoleName, u.RoleName)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err := f.svc.Register(ctx, "a@B.COM", "Dup", "Secret123")
	require.ErrorIs(t, err, common.ErrEmailAlreadyRegistered)

	_, _, err = f.svc.Register(ctx, "c@d.com", "Weak", "short")
	require.ErrorIs(t, err, common.ErrWeakPassword)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, _ := f.register(t)

	u, pair, err := f.svc.Login(ctx, "a@b.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	p, err := f.svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, p.UserID)
	assert.Equal(t, common.DefaultRoleName, p.RoleName)

	_, _, err = f.svc.Login(ctx, "a@b.com", "Wrong1234")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, "nobody@b.com", "Secret123")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestValidateAccessToken_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair := f.register(t)

	f.clock.Advance(15*time.Minute - time.Second)
	_, err := f.svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenExpired)

	_, err = f.svc.ValidateAccessToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrTokenInvalid)

	_, err = f.svc.ValidateAccessToken(ctx, "garbage")
	require.ErrorIs(t, err, common.ErrTokenInvalid)
}

func TestValidateAccessToken_RoleIsReloaded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, pair := f.register(t)

	require.NoError(t, f.rm.UserStore().SetRole(u.ID, common.AdminRoleName))

	p, err := f.svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin(), "role comes from storage, not from the token")
}

func TestValidateAccessToken_PrincipalGone(t *testing.T) {
	f := newFixture(t)
	u, pair := f.register(t)

	f.rm.UserStore().Delete(u.ID)

	_, err := f.svc.ValidateAccessToken(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, common.ErrPrincipalNotFound)
}

func TestRefresh_UnlimitedUntilExpiry(t *testing.T) {
	m := metrics.New()
	f := newFixture(t, WithMetrics(m))
	ctx := context.Background()
	u, pair := f.register(t)

	for i := 0; i < 10; i++ {
		access, err := f.svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)

		p, err := f.svc.ValidateAccessToken(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, u.ID, p.UserID)

		f.clock.Advance(12 * time.Hour)
	}

	uid, err := f.svc.ValidateRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)

	f.clock.Advance(7 * 24 * time.Hour)
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrTokenExpired)

	body := scrape(t, m)
	assert.Contains(t, body, `shelfauth_refresh_total{outcome="success"} 10`)
	assert.Contains(t, body, `shelfauth_refresh_total{outcome="rejected"} 1`)
	assert.Contains(t, body, `shelfauth_token_validation_failures_total{kind="expired"} 1`)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	b, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(b)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	_, pair := f.register(t)

	_, err := f.svc.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenInvalid)

	_, err = f.svc.ValidateRefreshToken(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenInvalid)
}

func TestRefresh_PrincipalGone(t *testing.T) {
	f := newFixture(t)
	u, pair := f.register(t)
	f.rm.UserStore().Delete(u.ID)

	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrPrincipalNotFound)
}

func TestLogout_WithoutRevocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair := f.register(t)

	assert.False(t, f.svc.RevocationEnabled())
	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))

	_, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err, "without a revocation backend the token survives logout")

	n, err := f.svc.PurgeRevocations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogout_WithRevocation(t *testing.T) {
	store := revocations.NewMemoryRepository()
	f := newFixture(t, WithRevocations(store))
	ctx := context.Background()
	_, pair := f.register(t)

	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, "garbage"))

	_, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrTokenInvalid)

	// other sessions are unaffected
	_, other, err := f.svc.Login(ctx, "a@b.com", "Secret123")
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, other.RefreshToken)
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	n, err := f.svc.PurgeRevocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

type failingUsers struct{ err error }

func (f failingUsers) Create(context.Context, *models.User, string) (*models.User, error) {
	return nil, f.err
}
func (f failingUsers) GetByEmail(context.Context, string) (*models.User, error) { return nil, f.err }
func (f failingUsers) GetByID(context.Context, int64) (*models.User, error)     { return nil, f.err }

type brokenManager struct {
	*repomanager.InMemoryRepositoryManager
	users users.Repository
}

func (m brokenManager) Users(dbx.DBTX) users.Repository { return m.users }

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, int64, time.Time) error {
	return errors.New("redis down")
}
func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (failingRevocations) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

func TestStorageFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	tokens, err := auth.NewManager([]byte("k"))
	require.NoError(t, err)

	rm := brokenManager{
		InMemoryRepositoryManager: repomanager.NewInMemoryRepositoryManager(),
		users:                     failingUsers{err: errors.New("db down")},
	}
	svc := NewAuthService(nil, rm, tokens, logging.NewNop(), WithHashParams(fastHash), WithRevocations(failingRevocations{}))

	_, _, err = svc.Register(ctx, "a@b.com", "A", "Secret123")
	require.ErrorIs(t, err, common.ErrorInternal)

	_, _, err = svc.Login(ctx, "a@b.com", "Secret123")
	require.ErrorIs(t, err, common.ErrorInternal)

	pair, err := tokens.IssueTokens(models.Principal{UserID: 1, RoleName: "member"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, common.ErrorInternal)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrorInternal)

	require.ErrorIs(t, svc.Logout(ctx, pair.RefreshToken), common.ErrorInternal)
}
