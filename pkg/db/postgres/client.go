package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"github.com/mxlvintam/cohortx/pkg/utils"
	"go.uber.org/zap"
)

// Client wraps a PostgreSQL connection pool. The reporter uses it to read the
// operational sales and customer tables; nothing in this module writes back.
type Client struct {
	Logger *zap.Logger
	Pool   *pgxpool.Pool
}

// New connects to PostgreSQL and verifies the connection. An empty dsn falls
// back to the POSTGRES_URL environment variable. Connection establishment runs
// under backoff because the operational database may be briefly unreachable
// when a run starts.
func New(ctx context.Context, logger *zap.Logger, retryCfg retry.Config, dsn string) (Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if dsn == "" {
		dsn = utils.Env("POSTGRES_URL", "postgres://localhost:5432/postgres")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return Client{}, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}

	// A source streams two tables once per run, so a small pool is plenty.
	config.MinConns = 1
	config.MaxConns = 4
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	client := Client{Logger: logger}
	retryErr := retry.WithBackoff(connCtx, retryCfg, logger, "postgres_connection", func() error {
		pool, openErr := pgxpool.NewWithConfig(connCtx, config)
		if openErr != nil {
			return fmt.Errorf("failed to create postgres connection pool: %w", openErr)
		}

		if pingErr := pool.Ping(connCtx); pingErr != nil {
			pool.Close()
			return fmt.Errorf("failed to ping postgres: %w", pingErr)
		}

		client.Pool = pool
		return nil
	})
	if retryErr != nil {
		return Client{}, retryErr
	}

	logger.Info("PostgreSQL connection pool configured",
		zap.String("database", config.ConnConfig.Database),
		zap.Int32("min_conns", config.MinConns),
		zap.Int32("max_conns", config.MaxConns),
	)
	return client, nil
}

// Query executes a query that returns rows.
// IMPORTANT: Caller MUST call rows.Close() when done to release the connection
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	return c.Pool.Query(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (c *Client) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	return c.Pool.QueryRow(ctx, query, args...)
}

// Ping verifies the pool can still reach the server.
func (c *Client) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// IsNoRows checks if the error is a "no rows" error
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
