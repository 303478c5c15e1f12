// Package pgdb holds the connection-pool construction shared by the
// execution ledger and analysis stores — two logically separate Postgres
// databases per spec §5's shared-resource policy, built from the same
// pool-configuration recipe.
package pgdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"binance-trading-bot/config"
	"binance-trading-bot/internal/logging"
)

// NewPool opens a connection pool against one of the two configured
// databases (ledger or analysis).
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("unable to ping database %s: %w", cfg.Database, err)
	}

	logging.DatabaseContext("connect", cfg.Database).Info("connected to PostgreSQL database")
	return pool, nil
}

// RunMigrations executes an ordered slice of raw DDL statements,
// sequentially, the way db.go's RunMigrations does for the teacher's
// single database.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, statements []string) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
