// Package mapdb implements the external, cross-session tile cache
// (spec.md §6.4) as a Postgres-backed store, consumed by
// internal/worldmap.Map only on a local miss. Grounded on the teacher's
// internal/persist (pgxpool connection management, goose migrations);
// adapted from the teacher's account/character/item repositories to a
// single tiles+grids cache and wrapped with github.com/sethvargo/go-retry
// so a transient connection hiccup does not turn into a fatal error for
// the replica (spec.md §7: MapDb I/O failure must not be fatal).
package mapdb

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/elsid/hafen-botserver/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a pgx connection pool reaching the tile cache schema.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.MapDbConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mapdb: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("mapdb: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("mapdb: ping: %w", err)
	}

	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies the tiles/grids cache schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("mapdb: set dialect: %w", err)
	}

	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
		return fmt.Errorf("mapdb: run migrations: %w", err)
	}
	return nil
}
