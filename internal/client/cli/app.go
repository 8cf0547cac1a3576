package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/client/client"
	"github.com/dmitrijs2005/shelfauth/internal/client/config"
	"github.com/dmitrijs2005/shelfauth/internal/client/models"
	"github.com/dmitrijs2005/shelfauth/internal/client/services"
	"github.com/dmitrijs2005/shelfauth/internal/client/session"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const onlineCheckInterval = 5 * time.Second

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer

	principal atomic.Pointer[models.Principal]
	mode      atomic.Value
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	app := &App{config: c, db: db, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	logger := logging.NewJSONLogger(os.Stderr, "warn")
	store := session.NewSQLiteStore(db)

	apiClient := client.NewAPIClient(c.ServerURL, &http.Client{Timeout: c.RequestTimeout})
	coordinator := client.NewCoordinator(store, apiClient,
		client.WithRefreshTimeout(c.RefreshTimeout),
		client.WithLogger(logger),
		client.OnSessionEnded(app.sessionEnded))
	apiClient.WithAuthedClient(&http.Client{Transport: coordinator, Timeout: c.RequestTimeout})

	app.authService = services.NewAuthService(apiClient, store, coordinator, logger)

	p, err := app.authService.Current(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.principal.Store(p)

	return app, nil
}

// sessionEnded is called by the Coordinator after it destroyed the session.
func (a *App) sessionEnded(error) {
	a.principal.Store(nil)
	printlnFn("Session ended, please log in again")
}

func (a *App) isLoggedIn() bool {
	return a.principal.Load() != nil
}

func (a *App) setMode(mode Mode) {
	if old, _ := a.mode.Load().(Mode); old != mode {
		a.mode.Store(mode)
		printlnFn(fmt.Sprintf("Server is %s", mode))
	}
}

func (a *App) getStatus() string {
	s := ""
	if p := a.principal.Load(); p != nil {
		s = p.Email
	}
	if m, _ := a.mode.Load().(Mode); m != "" {
		if s != "" {
			s += " "
		}
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and reports
// online/offline transitions.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

// Run blocks in the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.db.Close()

	printlnFn("Welcome to shelfauth CLI (type 'help' for commands)")
	go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
