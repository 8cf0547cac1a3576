package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"github.com/dmitrijs2005/shelfauth/internal/server/metrics"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	requestIDKey
)

const RequestIDHeader = "X-Request-ID"

// PrincipalFromContext returns the principal set by Authenticate.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID keeps an incoming X-Request-ID or assigns a new ULID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestLogging logs one line per request and records its latency under the
// matched chi route pattern.
func RequestLogging(logger logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lrw, r)

			d := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveRequest(route, lrw.status, d)

			logger.Info(r.Context(), "http.request",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", lrw.status,
				"duration_ms", d.Milliseconds(),
				"remote", r.RemoteAddr,
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(common.BearerPrefix):])
	return token, token != ""
}

// Authenticate validates the bearer token and stores the principal in the
// request context. Every rejection is a 401 with one of the three token
// reasons; a missing header counts as an invalid token.
func Authenticate(svc AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, api.ReasonInvalidToken)
				return
			}

			p, err := svc.ValidateAccessToken(r.Context(), token)
			if err != nil {
				status, reason := tokenFailure(err)
				writeError(w, status, reason)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, *p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, api.ReasonInvalidToken)
			return
		}
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, api.ReasonForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFailure(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, api.ReasonTokenExpired
	case errors.Is(err, common.ErrPrincipalNotFound):
		return http.StatusUnauthorized, api.ReasonUserNotFound
	case errors.Is(err, common.ErrTokenInvalid):
		return http.StatusUnauthorized, api.ReasonInvalidToken
	default:
		return http.StatusInternalServerError, api.ReasonInternal
	}
}
