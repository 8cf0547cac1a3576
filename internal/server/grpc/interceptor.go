package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// methods under this prefix are reachable without a token
const healthPrefix = "/grpc.health.v1.Health/"

const authorizationMD = "authorization"

// PrincipalFromContext returns the principal set by the access-token
// interceptor.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "grpc.request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, err
}

// accessTokenInterceptor enforces "authorization: Bearer <token>" metadata on
// every method except health checks. Rejections carry the same reasons as
// the HTTP API.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if strings.HasPrefix(info.FullMethod, healthPrefix) {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(authorizationMD); len(values) > 0 {
			v := values[0]
			if len(v) > len(common.BearerPrefix) && strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
				accessToken = strings.TrimSpace(v[len(common.BearerPrefix):])
			}
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, api.ReasonInvalidToken)
	}

	p, err := s.tokens.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenExpired):
			return nil, status.Error(codes.Unauthenticated, api.ReasonTokenExpired)
		case errors.Is(err, common.ErrPrincipalNotFound):
			return nil, status.Error(codes.Unauthenticated, api.ReasonUserNotFound)
		case errors.Is(err, common.ErrTokenInvalid):
			return nil, status.Error(codes.Unauthenticated, api.ReasonInvalidToken)
		default:
			return nil, status.Error(codes.Internal, api.ReasonInternal)
		}
	}

	return handler(context.WithValue(ctx, principalKey, *p), req)
}
