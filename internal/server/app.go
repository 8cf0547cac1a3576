// Package server wires configuration, storage, token issuance and the HTTP
// and gRPC endpoints into one runnable App with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"github.com/dmitrijs2005/shelfauth/internal/server/auth"
	"github.com/dmitrijs2005/shelfauth/internal/server/config"
	"github.com/dmitrijs2005/shelfauth/internal/server/httpapi"
	"github.com/dmitrijs2005/shelfauth/internal/server/metrics"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shelfauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/shelfauth/internal/server/secrets"
	"github.com/dmitrijs2005/shelfauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/shelfauth/internal/server/grpc"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	authService *services.AuthService
	httpServer  *http.Server
	grpcServer  *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	secret, err := secrets.Resolve(ctx, c.SecretKey, secrets.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("secret init error: %w", err)
	}

	tokens, err := auth.NewManager(secret,
		auth.WithIssuer(c.Issuer),
		auth.WithTTL(c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration))
	if err != nil {
		return nil, err
	}

	var rm repomanager.RepositoryManager
	if c.InMemory {
		rm = repomanager.NewInMemoryRepositoryManager()
		logger.Warn(ctx, "running with in-memory storage, data is lost on exit")
	} else {
		db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			app.close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
	}

	m := metrics.New()
	opts := []services.AuthOption{services.WithMetrics(m)}

	switch c.RevocationBackend {
	case config.RevocationPostgres:
		opts = append(opts, services.WithRevocations(rm.Revocations(app.db)))
	case config.RevocationRedis:
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		opts = append(opts, services.WithRevocations(revocations.NewRedisRepository(app.redis)))
	}

	app.authService = services.NewAuthService(app.db, rm, tokens, logger, opts...)

	handler := httpapi.NewHandler(app.authService, logger,
		httpapi.WithMetrics(m),
		httpapi.WithHealth(app.ping))

	app.httpServer = &http.Server{
		Addr:              c.EndpointAddrHTTP,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, app.authService, app.ping)

	return app, nil
}

// ping checks whichever backends are configured.
func (app *App) ping(ctx context.Context) error {
	if app.db != nil {
		if err := app.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) close() {
	if app.db != nil {
		_ = app.db.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, lis net.Listener, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := app.httpServer.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
	if err := app.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeRevocations periodically drops revocation rows for expired tokens.
func (app *App) purgeRevocations(ctx context.Context) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.authService.PurgeRevocations(ctx)
			if err != nil {
				app.logger.Error(ctx, "purge revocations", "error", err)
				continue
			}
			app.logger.Debug(ctx, "purged revocations", "count", n)
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...",
		"revocation", app.config.RevocationBackend,
		"in_memory", app.config.InMemory)

	app.initSignalHandler(ctx, cancelFunc)

	lis, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, lis, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeRevocations(ctx)
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return nil
}
