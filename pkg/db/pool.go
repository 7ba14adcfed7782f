// Package db provides database connection pooling via pgx and persistence of
// bridge delivery events.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// Drop recording is write-light; a small pool is enough.
const (
	PoolMaxConns = 8
	PoolMinConns = 1
)

// poolConfig parses databaseURL and applies the pool sizing.
func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%s - database URL is empty", logPrefix)
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = PoolMaxConns
	config.MinConns = PoolMinConns
	return config, nil
}

// NewPool connects a pgx pool to databaseURL and pings it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Connecting to database %s/%s", logPrefix, config.ConnConfig.Host, config.ConnConfig.Database))

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}
