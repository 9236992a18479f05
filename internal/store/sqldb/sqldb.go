// Package sqldb implementa los repositorios sobre database/sql.
// Las queries se escriben con placeholders "?" y el Dialect las traduce.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/store"
)

// Dialect describe las diferencias entre motores que importan a los repositorios.
type Dialect struct {
	Name string
	// Numbered usa $1, $2... en vez de "?".
	Numbered bool
	// ForUpdate se agrega a los SELECT de lectura-chequeo-escritura.
	ForUpdate string
	// UniqueViolation reconoce el error del driver por clave única duplicada.
	UniqueViolation func(error) bool
}

// Rebind traduce los "?" de q al estilo del dialecto.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d Dialect) isUnique(err error) bool {
	return err != nil && d.UniqueViolation != nil && d.UniqueViolation(err)
}

// querier es lo común entre *sql.DB y *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type repos struct {
	persons    *personRepo
	orgs       *orgRepo
	statements *statementRepo
}

func newRepos(q querier, d Dialect) repos {
	return repos{
		persons:    &personRepo{q: q, d: d},
		orgs:       &orgRepo{q: q, d: d},
		statements: &statementRepo{q: q, d: d},
	}
}

func (r repos) Persons() repository.PersonRepository { return r.persons }
func (r repos) Organizations() repository.OrganizationRepository { return r.orgs }
func (r repos) Statements() repository.StatementRepository { return r.statements }

// Config parametriza un DB.
type Config struct {
	Dialect       Dialect
	Migrations    fs.FS
	MigrationsDir string
	// OnClose se ejecuta después de cerrar el *sql.DB (ej: cerrar el pgxpool).
	OnClose func()
}

// DB implementa store.Connection sobre un *sql.DB.
type DB struct {
	repos
	db  *sql.DB
	cfg Config
}

var _ store.Connection = (*DB)(nil)

// New envuelve db. El DB toma ownership de db: Close lo cierra.
func New(db *sql.DB, cfg Config) *DB {
	return &DB{repos: newRepos(db, cfg.Dialect), db: db, cfg: cfg}
}

func (c *DB) Name() string { return c.cfg.Dialect.Name }

// SQL expone el pool subyacente (métricas de pool, tests).
func (c *DB) SQL() *sql.DB { return c.db }

func (c *DB) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *DB) Close() error {
	err := c.db.Close()
	if c.cfg.OnClose != nil {
		c.cfg.OnClose()
	}
	return err
}

// Migrate aplica el esquema embebido del dialecto.
func (c *DB) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	if c.cfg.Migrations == nil {
		return nil, errors.New("sqldb: no migrations configured")
	}
	return store.NewMigrator(c.cfg.Migrations, c.cfg.MigrationsDir, c.cfg.Dialect.Rebind).Run(ctx, c.db)
}

// Acquire reserva una conexión dedicada del pool para un request.
func (c *DB) Acquire(ctx context.Context) (store.Scope, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqldb: acquire conn: %w", err)
	}
	return &scope{repos: newRepos(conn, c.cfg.Dialect), conn: conn}, nil
}

type scope struct {
	repos
	conn *sql.Conn
	once sync.Once
	err  error
}

func (s *scope) Release() error {
	s.once.Do(func() { s.err = s.conn.Close() })
	return s.err
}

// rollback ignora el error de un Rollback tras Commit.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
