package grpctransport

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// GRPCTransport serves grpc.health.v1.Health for orchestrator probes.
type GRPCTransport struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	service  string

	registerOnce sync.Once
}

// NewGRPCTransport listens on server.grpc.port.
func NewGRPCTransport() *GRPCTransport {
	listener, err := net.Listen("tcp", ":"+viper.GetString("server.grpc.port"))
	if err != nil {
		panic(err)
	}

	return NewGRPCTransportWithListener(listener)
}

// NewGRPCTransportWithListener serves on an existing listener.
func NewGRPCTransportWithListener(listener net.Listener) *GRPCTransport {
	g := &GRPCTransport{
		server:   newGRPCServer(),
		listener: listener,
		health:   health.NewServer(),
		service:  viper.GetString("otel.service_name"),
	}

	return g
}

// Run starts the gRPC server and reports SERVING.
func (g *GRPCTransport) Run() error {
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	g.health.SetServingStatus(g.service, healthpb.HealthCheckResponse_SERVING)
	slog.Info("Starting gRPC server", "address", g.listener.Addr().String())

	return g.server.Serve(g.listener)
}

// Shutdown reports NOT_SERVING, then gracefully shuts down the gRPC server.
func (g *GRPCTransport) Shutdown(ctx context.Context) error {
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.server.Stop()

		return ctx.Err()
	}
}

// RegisterServices registers the gRPC services. Calls after the first are no-ops.
func (g *GRPCTransport) RegisterServices() {
	g.registerOnce.Do(func() {
		healthpb.RegisterHealthServer(g.server, g.health)
		reflection.Register(g.server)
	})
}

// newGRPCServer creates a new gRPC server with default settings.
func newGRPCServer() *grpc.Server {
	keepaliveParams := keepalive.ServerParameters{
		MaxConnectionIdle: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_idle"),
		) * time.Minute,
		MaxConnectionAge: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age"),
		) * time.Minute,
		MaxConnectionAgeGrace: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age_grace"),
		) * time.Second,
		Time: time.Duration(
			viper.GetInt("server.grpc.keepalive.time"),
		) * time.Second,
		Timeout: time.Duration(
			viper.GetInt("server.grpc.keepalive.timeout"),
		) * time.Second,
	}

	keepalivePolicy := keepalive.EnforcementPolicy{
		MinTime: time.Duration(
			viper.GetInt("server.grpc.keepalive.min_time"),
		) * time.Second,
		PermitWithoutStream: viper.GetBool("server.grpc.keepalive.permit_without_stream"),
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(keepalivePolicy),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	}

	return grpc.NewServer(opts...)
}
