package grpctransport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServing(t *testing.T) {
	listener := bufconn.Listen(1 << 20)
	transport := NewGRPCTransportWithListener(listener)
	transport.RegisterServices()

	errCh := make(chan error, 1)
	go func() { errCh <- transport.Run() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})

		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, transport.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func TestRegisterServices_Twice(t *testing.T) {
	transport := NewGRPCTransportWithListener(bufconn.Listen(1 << 20))

	assert.NotPanics(t, func() {
		transport.RegisterServices()
		transport.RegisterServices()
	})

	services := transport.server.GetServiceInfo()
	assert.Contains(t, services, healthpb.Health_ServiceDesc.ServiceName)
	assert.Contains(t, services, "grpc.reflection.v1.ServerReflection")
}

func TestNewGRPCTransport_RegistersNothing(t *testing.T) {
	transport := NewGRPCTransportWithListener(bufconn.Listen(1 << 20))

	assert.Empty(t, transport.server.GetServiceInfo())
}
