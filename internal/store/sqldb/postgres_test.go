package sqldb_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/store/adapters/pg"
	"github.com/feuc/declaraciones/internal/store/sqldb"
)

var personCols = []string{
	"id", "external_id", "name", "first_name", "last_name", "username", "email",
	"is_representative", "representative_type", "territory", "career", "year",
	"is_active", "is_authenticated", "is_superuser", "member_of", "admin_of", "created_at",
}

func personRow(id, sub, memberOf string) *sqlmock.Rows {
	var member any
	if memberOf != "" {
		member = memberOf
	}
	return sqlmock.NewRows(personCols).AddRow(
		id, sub, "Bob B", "Bob", "B", "bob", "bob@uc.cl",
		false, "", "", "", int64(0),
		true, true, false, member, nil, time.Now(),
	)
}

func newMockDB(t *testing.T) (*sqldb.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqldb.New(db, sqldb.Config{Dialect: pg.Dialect()}), mock
}

func TestPostgresRebind(t *testing.T) {
	d := pg.Dialect()
	assert.Equal(t, "UPDATE persons SET member_of = $1 WHERE id = $2", d.Rebind("UPDATE persons SET member_of = ? WHERE id = ?"))
	assert.Equal(t, "SELECT 1", d.Rebind("SELECT 1"))
}

func TestPostgresProvision_UniqueViolationFetchesWinner(t *testing.T) {
	conn, mock := newMockDB(t)
	byExternal := regexp.QuoteMeta("FROM persons WHERE external_id = $1")

	mock.ExpectQuery(byExternal).WithArgs("g123").WillReturnRows(sqlmock.NewRows(personCols))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO persons")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "persons_external_id_key"})
	mock.ExpectRollback()
	mock.ExpectQuery(byExternal).WithArgs("g123").WillReturnRows(personRow("winner", "g123", ""))

	p, created, err := conn.Persons().Provision(context.Background(), repository.ProvisionInput{
		ExternalID: "g123", Email: "bob@uc.cl", Username: "bob",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProvision_OtherInsertErrorsPropagate(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM persons WHERE external_id = $1")).WillReturnRows(sqlmock.NewRows(personCols))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO persons")).WillReturnError(&pgconn.PgError{Code: "23514"})
	mock.ExpectRollback()

	_, _, err := conn.Persons().Provision(context.Background(), repository.ProvisionInput{
		ExternalID: "g1", Email: "bob@uc.cl", Username: "bob",
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddMember_LocksRowAndRejectsMembers(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1 ORDER BY created_at LIMIT 2 FOR UPDATE")).
		WithArgs("bob").
		WillReturnRows(personRow("p1", "g1", "org-a"))
	mock.ExpectRollback()

	_, err := conn.Persons().AddMember(context.Background(), "bob", "org-b")
	assert.ErrorIs(t, err, repository.ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoveMember_ClearsAdmin(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).WithArgs("bob").
		WillReturnRows(personRow("p1", "g1", "org-a"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE persons SET member_of = NULL, admin_of = NULL WHERE id = $1 AND member_of = $2")).
		WithArgs("p1", "org-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := conn.Persons().RemoveMember(context.Background(), "bob", "org-a")
	require.NoError(t, err)
	assert.Empty(t, p.MemberOf)
	assert.NoError(t, mock.ExpectationsWereMet())
}
