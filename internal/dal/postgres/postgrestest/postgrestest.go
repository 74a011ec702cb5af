// Package postgrestest starts a throwaway PostgreSQL with the commerce schema for
// repository integration tests.
package postgrestest

import (
	"context"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewClient skips under -short. The container is terminated when the test ends.
func NewClient(t *testing.T) *postgres.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("commerce"),
		tcpostgres.WithUsername("commerce"),
		tcpostgres.WithPassword("commerce"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(pool))

	client := postgres.NewClient(pool)
	t.Cleanup(client.Close)

	return client
}
