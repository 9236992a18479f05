// Package pg registra el adapter PostgreSQL: pgxpool expuesto como *sql.DB.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	migrations "github.com/feuc/declaraciones/migrations/postgres"

	"github.com/feuc/declaraciones/internal/store"
	"github.com/feuc/declaraciones/internal/store/sqldb"
)

const pgErrUniqueViolation = "23505"

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// Dialect es el dialecto PostgreSQL ($n, FOR UPDATE, 23505).
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Name:            "postgres",
		Numbered:        true,
		ForUpdate:       " FOR UPDATE",
		UniqueViolation: isUniqueViolation,
	}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	return sqldb.New(db, sqldb.Config{
		Dialect:       Dialect(),
		Migrations:    migrations.FS,
		MigrationsDir: migrations.Dir,
		OnClose:       pool.Close,
	}), nil
}
