package server

import (
	"context"
	"errors"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tokenforge/auth-service/internal/adapters/transport/grpc/middleware"
	healthcheck "github.com/tokenforge/auth-service/internal/infra/health"
)

// ServiceName is the name the health service reports for the auth service.
const ServiceName = "auth.v1.AuthService"

type GRPCServer struct {
	srv      *grpc.Server
	health   *health.Server
	checks   healthcheck.Checks
	interval time.Duration
	logger   *zap.Logger
}

func NewGRPCServer(logger *zap.Logger, checks healthcheck.Checks, probeInterval time.Duration) *GRPCServer {
	if probeInterval <= 0 {
		probeInterval = 10 * time.Second
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger)))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	grpc_prometheus.Register(srv)
	grpc_prometheus.EnableHandlingTimeHistogram()
	reflection.Register(srv)

	return &GRPCServer{srv: srv, health: hs, checks: checks, interval: probeInterval, logger: logger}
}

// Probe runs the dependency checks once and publishes the result.
func (s *GRPCServer) Probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	for name, err := range s.checks.Run(ctx) {
		s.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks until ctx is cancelled, then stops gracefully within five seconds.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.Probe(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-ticker.C:
			s.Probe(ctx)
		}
	}

	s.logger.Info("ctx cancelled, stopping gRPC server")
	s.health.Shutdown()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-stopCtx.Done():
		s.srv.Stop()
	case <-done:
	}
	s.logger.Info("gRPC server stopped")
	return nil
}

func StartGRPCServer(ctx context.Context, addr string, checks healthcheck.Checks, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return NewGRPCServer(logger, checks, 0).Serve(ctx, lis)
}
