package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftsignal/crashbridge/internal/config"
)

// minPoolConns is one connection per batch writer (breadcrumbs and crash
// events flush independently), so a flush never queues behind the other
// writer's batch.
const minPoolConns = 2

// Connect creates a connection pool for the telemetry database.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// poolConfig maps bridge database config onto a pgx pool config, clamping
// the connection counts to what the two writers need.
func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns < minPoolConns {
		maxConns = minPoolConns
	}
	minConns := cfg.MinConns
	if minConns > maxConns {
		minConns = maxConns
	}

	poolCfg.MinConns = int32(minConns)
	poolCfg.MaxConns = int32(maxConns)

	return poolCfg, nil
}
