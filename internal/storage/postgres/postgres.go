// Package postgres implements the score archive on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wallet-score/internal/observability"
)

const (
	databaseLabel   = "postgres"
	applicationName = "blockscore"

	// uniqueViolation is SQLSTATE 23505.
	uniqueViolation = "23505"
)

// Pool is the pgx pool shared by the score archive stores.
type Pool struct {
	*pgxpool.Pool
}

// PoolOption adjusts the parsed pool config before connecting.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps open connections. Non-positive values keep the pgx default.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// NewPool connects to dsn and pings once so a bad DSN fails at startup.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func observe(operation string, start time.Time, err error) {
	observability.RecordDBQuery(databaseLabel, operation, time.Since(start).Seconds(), err)
}
