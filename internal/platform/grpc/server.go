package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/trustmesh/internal/platform/timeouts"
)

// HealthServer is a gRPC server exposing only the standard health service.
// Components report readiness through SetServing.
type HealthServer struct {
	server   *gogrpc.Server
	health   *health.Server
	listener net.Listener
	logger   *zap.Logger
}

// ListenHealth binds addr and registers the health service. Every service
// name in services starts NOT_SERVING; the overall "" status follows them.
func ListenHealth(addr string, logger *zap.Logger, services ...string) (*HealthServer, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("health address is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	for _, name := range services {
		healthServer.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return &HealthServer{
		server:   server,
		health:   healthServer,
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *HealthServer) Addr() string {
	return s.listener.Addr().String()
}

// SetServing flips the status of service. An empty name is the overall status.
func (s *HealthServer) SetServing(service string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
	s.logger.Info("health status changed",
		zap.String("service", service),
		zap.String("status", status.String()),
	)
}

// Serve blocks until ctx ends or the server fails. On cancellation it marks
// every service NOT_SERVING and stops gracefully within timeouts.Shutdown.
func (s *HealthServer) Serve(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(s.listener)
	}()
	s.logger.Info("health server listening", zap.String("addr", s.Addr()))

	select {
	case err := <-serveErr:
		if errors.Is(err, gogrpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve health: %w", err)
	case <-ctx.Done():
	}

	s.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeouts.Shutdown):
		s.logger.Warn("health server did not stop in time; forcing")
		s.server.Stop()
	}
	<-serveErr
	return nil
}
