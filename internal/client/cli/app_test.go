package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/client/config"
	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMode_ChangesAndReportsOnce(t *testing.T) {
	out := captureOutput(t)
	app := &App{}

	app.setMode(ModeOnline)
	app.setMode(ModeOnline)
	app.setMode(ModeOffline)

	assert.Equal(t, []string{"Server is online", "Server is offline"}, *out)
	assert.Equal(t, "(offline)", app.getStatus())
}

func TestSessionEnded_LogsOut(t *testing.T) {
	out := captureOutput(t)
	app := &App{}
	app.principal.Store(alice)

	app.sessionEnded(common.ErrRefreshUnavailable)

	assert.False(t, app.isLoggedIn())
	assert.Equal(t, []string{"Session ended, please log in again"}, *out)
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	captureOutput(t)
	f := &fakeAuth{err: errors.New("down")}
	app := &App{authService: f}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	app.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)

	m, _ := app.mode.Load().(Mode)
	assert.Equal(t, ModeOffline, m)
}

func TestNewApp_RestoresSession(t *testing.T) {
	captureOutput(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case api.PathLogin:
			_, _ = w.Write([]byte(`{"user":{"id":3,"email":"r@lib.test","name":"R","roleId":2,"roleName":"member"},"accessToken":"a","refreshToken":"r"}`))
		case api.PathLogout:
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = srv.URL
	cfg.SessionDBPath = filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, app.isLoggedIn())

	_, err = app.authService.Login(ctx, "r@lib.test", []byte("Secret123"))
	require.NoError(t, err)
	require.NoError(t, app.db.Close())

	app, err = NewApp(ctx, cfg)
	require.NoError(t, err)
	defer app.db.Close()
	assert.True(t, app.isLoggedIn(), "session survives restart")
	assert.Equal(t, "(r@lib.test)", app.getStatus())

	require.NoError(t, app.Logout(ctx))
	assert.False(t, app.isLoggedIn())
}
