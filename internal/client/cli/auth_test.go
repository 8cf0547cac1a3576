package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/shelfauth/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubInputs(t *testing.T, answers []string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(answers) {
			return "", io.EOF
		}
		i++
		return answers[i-1], nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	principal *models.Principal
	err       error

	regEmail, regName string
	regPass           []byte
	loginEmail        string
	loginPass         []byte
	logoutCalled      bool
	logoutErr         error
}

func (f *fakeAuth) Register(_ context.Context, email, name string, pw []byte) (*models.Principal, error) {
	f.regEmail, f.regName, f.regPass = email, name, append([]byte(nil), pw...)
	return f.principal, f.err
}

func (f *fakeAuth) Login(_ context.Context, email string, pw []byte) (*models.Principal, error) {
	f.loginEmail, f.loginPass = email, append([]byte(nil), pw...)
	return f.principal, f.err
}

func (f *fakeAuth) WhoAmI(context.Context) (*models.Principal, error)      { return f.principal, f.err }
func (f *fakeAuth) AdminWhoAmI(context.Context) (*models.Principal, error) { return f.principal, f.err }
func (f *fakeAuth) Current(context.Context) (*models.Principal, error)     { return f.principal, nil }
func (f *fakeAuth) Ping(context.Context) error                             { return f.err }

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return f.logoutErr
}

var alice = &models.Principal{UserID: 1, Email: "alice@example.org", Name: "Alice", RoleID: 2, RoleName: "member"}

func TestRegister_CallsServiceAndWipesPassword(t *testing.T) {
	captureOutput(t)
	pw := []byte("Secret123")
	stubInputs(t, []string{"alice@example.org", "Alice"}, pw)

	f := &fakeAuth{principal: alice}
	a := &App{authService: f, out: io.Discard}

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, "alice@example.org", f.regEmail)
	assert.Equal(t, "Alice", f.regName)
	assert.Equal(t, []byte("Secret123"), f.regPass)
	assert.Equal(t, make([]byte, len(pw)), pw, "password wiped")
	assert.True(t, a.isLoggedIn())
}

func TestLogin(t *testing.T) {
	out := captureOutput(t)
	stubInputs(t, []string{"alice@example.org"}, []byte("pw"))

	f := &fakeAuth{principal: alice}
	a := &App{authService: f, out: io.Discard}

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "alice@example.org", f.loginEmail)
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, *out, "Login successful")
	assert.Equal(t, "(alice@example.org)", a.getStatus())
}

func TestLogin_ErrorLeavesLoggedOut(t *testing.T) {
	captureOutput(t)
	stubInputs(t, []string{"alice@example.org"}, []byte("pw"))

	boom := errors.New("boom")
	a := &App{authService: &fakeAuth{err: boom}, out: io.Discard}

	require.ErrorIs(t, a.Login(context.Background()), boom)
	assert.False(t, a.isLoggedIn())
}

func TestLogin_InputError(t *testing.T) {
	captureOutput(t)
	stubInputs(t, nil, nil)

	f := &fakeAuth{principal: alice}
	a := &App{authService: f, out: io.Discard}

	require.ErrorIs(t, a.Login(context.Background()), io.EOF)
	assert.Empty(t, f.loginEmail)
}

func TestWhoAmI_Prints(t *testing.T) {
	out := captureOutput(t)
	admin := *alice
	admin.RoleName = "admin"

	a := &App{authService: &fakeAuth{principal: &admin}}
	require.NoError(t, a.WhoAmI(context.Background()))
	assert.Contains(t, *out, "Alice <alice@example.org> (id 1, role admin, admin)")

	require.NoError(t, a.AdminWhoAmI(context.Background()))
}

func TestLogout(t *testing.T) {
	out := captureOutput(t)
	f := &fakeAuth{}
	a := &App{authService: f}
	a.principal.Store(alice)

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, f.logoutCalled)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, *out, "Logged out")
}

func TestLogout_ErrorStillLogsOutLocally(t *testing.T) {
	captureOutput(t)
	f := &fakeAuth{logoutErr: errors.New("server down")}
	a := &App{authService: f}
	a.principal.Store(alice)

	require.Error(t, a.Logout(context.Background()))
	assert.False(t, a.isLoggedIn())
}
