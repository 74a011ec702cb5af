package postgres

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Conn is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories work inside and outside a unit of work.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// TxConn is a Conn that can open a (nested) transaction.
type TxConn interface {
	Conn
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Ping checks that the database answers.
func (p *Client) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// NewClient wraps an existing pool.
func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

// MustNewClient connects using COMMERCE_PG_* environment variables and applies migrations.
func MustNewClient() *Client {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("COMMERCE_PG_HOST", "localhost"),
		envOr("COMMERCE_PG_PORT", "5432"),
		os.Getenv("COMMERCE_PG_USER"),
		os.Getenv("COMMERCE_PG_PASSWORD"),
		os.Getenv("COMMERCE_PG_DB"),
		envOr("COMMERCE_PG_SSLMODE", "disable"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		panic(err)
	}
	if maxConns := viper.GetInt32("postgres.max_conns"); maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		panic(err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		panic(err)
	}

	if viper.GetBool("postgres.migrations_enabled") {
		if err := Migrate(pool); err != nil {
			panic(err)
		}
	}

	return &Client{
		pool: pool,
	}
}

// Migrate applies the embedded goose migrations.
func Migrate(pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
