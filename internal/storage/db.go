// Package storage provides PostgreSQL persistence for aggregation tables.
//
// The engine itself mandates no persistence format; this package serializes
// an aggregation table to rows of {category, month, keyword, weight} so that
// batch results survive between runs, and guarantees that loading those rows
// back reproduces the exact accumulated weights. Each batch run replaces the
// stored rows wholesale, matching the rebuild-from-scratch rule for re-runs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/newstrend-lab/keyword-trends/migrations"
)

const (
	defaultMaxConns      = 8
	defaultMinConns      = 1
	maxConnectionRetries = 5
	connectionRetrySleep = 2 * time.Second
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// New creates a database connection, retrying while the database comes up.
func New(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns

	var pool *pgxpool.Pool

	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &DB{Pool: pool, logger: logger}, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		if logger != nil {
			logger.Warn().Err(err).Int("attempt", i+1).Msg("database connection failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectionRetrySleep):
		}
	}

	return nil, fmt.Errorf("connect to database after %d attempts: %w", maxConnectionRetries, err)
}

// Migrate applies pending schema migrations.
func (db *DB) Migrate(_ context.Context) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
