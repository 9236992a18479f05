// Package sqlite registra el adapter SQLite (modernc.org/sqlite, sin cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	migrations "github.com/feuc/declaraciones/migrations/sqlite"

	"github.com/feuc/declaraciones/internal/store"
	"github.com/feuc/declaraciones/internal/store/sqldb"
)

func init() {
	store.RegisterAdapter(&sqliteAdapter{})
}

// Dialect es el dialecto SQLite ("?", sin FOR UPDATE: _txlock=immediate serializa escritores).
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Name:            "sqlite",
		UniqueViolation: isUniqueViolation,
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// DSN arma el DSN de modernc para un archivo: WAL, foreign keys, busy timeout
// y transacciones IMMEDIATE.
func DSN(path string) string {
	if strings.Contains(path, "?") || strings.HasPrefix(path, "file:") {
		return path
	}
	return filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", DSN(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return sqldb.New(db, sqldb.Config{
		Dialect:       Dialect(),
		Migrations:    migrations.FS,
		MigrationsDir: migrations.Dir,
	}), nil
}
