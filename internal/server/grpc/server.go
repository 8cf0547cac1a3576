// Package grpc runs the server's gRPC endpoint. It serves the standard
// grpc.health.v1 service, whose status follows a storage probe, behind a
// logging and access-token interceptor chain.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/logging"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health clients alongside "".
const ServiceName = "shelfauth.Auth"

const defaultProbeInterval = 10 * time.Second

// TokenValidator is satisfied by services.AuthService.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*models.Principal, error)
}

// ProbeFunc reports whether the server can reach its storage.
type ProbeFunc func(ctx context.Context) error

type GRPCServer struct {
	address       string
	logger        logging.Logger
	tokens        TokenValidator
	probe         ProbeFunc
	probeInterval time.Duration
	health        *health.Server
}

func NewGRPCServer(address string, l logging.Logger, tokens TokenValidator, probe ProbeFunc) *GRPCServer {
	return &GRPCServer{
		address:       address,
		logger:        l.With("module", "grpc_server"),
		tokens:        tokens,
		probe:         probe,
		probeInterval: defaultProbeInterval,
		health:        health.NewServer(),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.updateHealth(ctx)

	go func() {
		t := time.NewTicker(s.probeInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC server...")
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-t.C:
				s.updateHealth(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func (s *GRPCServer) updateHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.probe(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "storage probe failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
