// Package httpapi exposes AuthService over HTTP/JSON using chi.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"github.com/dmitrijs2005/shelfauth/internal/server/auth"
	"github.com/dmitrijs2005/shelfauth/internal/server/metrics"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// AuthService is the subset of services.AuthService the handlers need.
type AuthService interface {
	Register(ctx context.Context, email, name, password string) (*models.User, auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(ctx context.Context, token string) (*models.Principal, error)
	CurrentUser(ctx context.Context, p models.Principal) (*models.User, error)
}

// HealthFunc reports whether backing storage is reachable.
type HealthFunc func(ctx context.Context) error

type Handler struct {
	auth     AuthService
	logger   logging.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	health   HealthFunc
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithHealth(f HealthFunc) Option {
	return func(h *Handler) { h.health = f }
}

func NewHandler(svc AuthService, logger logging.Logger, opts ...Option) *Handler {
	h := &Handler{
		auth:     svc,
		logger:   logger.With("module", "httpapi"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes builds the chi router with the full middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogging(h.logger, h.metrics))
	r.Use(middleware.Recoverer)

	r.Get(api.PathHealth, h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, api.PathMetrics, h.metrics.Handler())
	}

	r.Post(api.PathLogin, h.Login)
	r.Post(api.PathRegister, h.Register)
	r.Post(api.PathRefresh, h.Refresh)
	r.Post(api.PathLogout, h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.auth))
		r.Get(api.PathMe, h.Me)

		r.With(RequireAdmin).Get(api.PathWhoAmI, h.Me)
	})

	return r
}
