package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feuc/declaraciones/internal/domain/repository"
)

const personColumns = `id, external_id, name, first_name, last_name, username, email,
	is_representative, representative_type, territory, career, year,
	is_active, is_authenticated, is_superuser, member_of, admin_of, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*repository.Person, error) {
	var (
		p                 repository.Person
		memberOf, adminOf sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.ExternalID, &p.Name, &p.FirstName, &p.LastName, &p.Username, &p.Email,
		&p.IsRepresentative, &p.Representative.Type, &p.Representative.Territory, &p.Representative.Career, &p.Representative.Year,
		&p.IsActive, &p.IsAuthenticated, &p.IsSuperuser, &memberOf, &adminOf, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	p.MemberOf = memberOf.String
	p.AdminOf = adminOf.String
	return &p, nil
}

type personRepo struct {
	q querier
	d Dialect
}

func (r *personRepo) getBy(ctx context.Context, q querier, column, value string) (*repository.Person, error) {
	row := q.QueryRowContext(ctx, r.d.Rebind(`SELECT `+personColumns+` FROM persons WHERE `+column+` = ?`), value)
	p, err := scanPerson(row)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("sqldb: person by %s: %w", column, err)
	}
	return p, err
}

func (r *personRepo) GetByID(ctx context.Context, id string) (*repository.Person, error) {
	return r.getBy(ctx, r.q, "id", id)
}

func (r *personRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.Person, error) {
	return r.getBy(ctx, r.q, "external_id", externalID)
}

func (r *personRepo) GetByEmail(ctx context.Context, email string) (*repository.Person, error) {
	return r.getBy(ctx, r.q, "email", email)
}

// Provision es un insert-or-fetch: la unicidad de external_id la garantiza
// la base; si otro request insertó primero, se retorna su fila.
func (r *personRepo) Provision(ctx context.Context, in repository.ProvisionInput) (*repository.Person, bool, error) {
	if in.ExternalID == "" || in.Email == "" {
		return nil, false, repository.ErrInvalidInput
	}

	existing, err := r.GetByExternalID(ctx, in.ExternalID)
	if err == nil {
		return existing, false, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, err
	}

	now := time.Now().UTC()
	p := &repository.Person{
		ID:               uuid.NewString(),
		ExternalID:       in.ExternalID,
		Name:             in.Name,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Username:         in.Username,
		Email:            in.Email,
		IsRepresentative: in.Superuser,
		IsActive:         true,
		IsAuthenticated:  true,
		IsSuperuser:      in.Superuser,
		CreatedAt:        now,
	}

	tx, err := r.q.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("sqldb: provision begin: %w", err)
	}
	defer rollback(tx)

	if in.BootstrapOrg != nil {
		org := newOrganization(*in.BootstrapOrg, now)
		if err := insertOrganization(ctx, tx, r.d, org); err != nil {
			return nil, false, fmt.Errorf("sqldb: provision bootstrap org: %w", err)
		}
		p.MemberOf = org.ID
		p.AdminOf = org.ID
	}

	_, err = tx.ExecContext(ctx, r.d.Rebind(`INSERT INTO persons (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ExternalID, p.Name, p.FirstName, p.LastName, p.Username, p.Email,
		p.IsRepresentative, p.Representative.Type, p.Representative.Territory, p.Representative.Career, p.Representative.Year,
		p.IsActive, p.IsAuthenticated, p.IsSuperuser, nullString(p.MemberOf), nullString(p.AdminOf), p.CreatedAt,
	)
	if err != nil {
		if r.d.isUnique(err) {
			// Perdimos la carrera: descartamos todo (incluida la org bootstrap)
			// y leemos la fila ganadora fuera de la transacción.
			rollback(tx)
			winner, ferr := r.GetByExternalID(ctx, in.ExternalID)
			if ferr != nil {
				return nil, false, fmt.Errorf("sqldb: provision fetch after conflict: %w", ferr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("sqldb: provision insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if r.d.isUnique(err) {
			winner, ferr := r.GetByExternalID(ctx, in.ExternalID)
			if ferr != nil {
				return nil, false, fmt.Errorf("sqldb: provision fetch after conflict: %w", ferr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("sqldb: provision commit: %w", err)
	}
	return p, true, nil
}

func (r *personRepo) list(ctx context.Context, where string, args ...any) ([]repository.Person, error) {
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(`SELECT `+personColumns+` FROM persons WHERE `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: list persons: %w", err)
	}
	defer rows.Close()

	var out []repository.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("sqldb: scan person: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *personRepo) ListRepresentatives(ctx context.Context) ([]repository.Person, error) {
	return r.list(ctx, `is_representative = ? AND is_active = ? ORDER BY last_name, first_name, username`, true, true)
}

func (r *personRepo) ListMembers(ctx context.Context, orgID string) ([]repository.Person, error) {
	return r.list(ctx, `member_of = ? ORDER BY last_name, first_name, username`, orgID)
}

// lockByUsername lee, dentro de tx, la única persona con ese username.
func (r *personRepo) lockByUsername(ctx context.Context, tx *sql.Tx, username string) (*repository.Person, error) {
	rows, err := tx.QueryContext(ctx,
		r.d.Rebind(`SELECT `+personColumns+` FROM persons WHERE username = ? ORDER BY created_at LIMIT 2`+r.d.ForUpdate),
		username)
	if err != nil {
		return nil, fmt.Errorf("sqldb: lock person: %w", err)
	}
	defer rows.Close()

	var found []*repository.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("sqldb: scan person: %w", err)
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, repository.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, repository.ErrAmbiguous
	}
}

func (r *personRepo) AddMember(ctx context.Context, username, orgID string) (*repository.Person, error) {
	tx, err := r.q.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqldb: add member begin: %w", err)
	}
	defer rollback(tx)

	p, err := r.lockByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if p.MemberOf != "" {
		return p, repository.ErrAlreadyMember
	}

	res, err := tx.ExecContext(ctx,
		r.d.Rebind(`UPDATE persons SET member_of = ? WHERE id = ? AND member_of IS NULL`),
		orgID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: add member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p, repository.ErrAlreadyMember
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqldb: add member commit: %w", err)
	}
	p.MemberOf = orgID
	return p, nil
}

func (r *personRepo) RemoveMember(ctx context.Context, username, orgID string) (*repository.Person, error) {
	tx, err := r.q.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqldb: remove member begin: %w", err)
	}
	defer rollback(tx)

	p, err := r.lockByUsername(ctx, tx, username)
	if err != nil {
		return nil, err
	}
	if p.MemberOf != orgID {
		return p, repository.ErrNotMember
	}

	res, err := tx.ExecContext(ctx,
		r.d.Rebind(`UPDATE persons SET member_of = NULL, admin_of = NULL WHERE id = ? AND member_of = ?`),
		p.ID, orgID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p, repository.ErrNotMember
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqldb: remove member commit: %w", err)
	}
	p.MemberOf = ""
	p.AdminOf = ""
	return p, nil
}

func (r *personRepo) SetRepresentative(ctx context.Context, personID string, rep repository.Representative) error {
	if err := rep.Validate(); err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`UPDATE persons
		SET is_representative = ?, representative_type = ?, territory = ?, career = ?, year = ?
		WHERE id = ?`),
		true, rep.Type, rep.Territory, rep.Career, rep.Year, personID)
	if err != nil {
		return fmt.Errorf("sqldb: set representative: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *personRepo) GrantAdmin(ctx context.Context, personID, orgID string) error {
	tx, err := r.q.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: grant admin begin: %w", err)
	}
	defer rollback(tx)

	p, err := scanPerson(tx.QueryRowContext(ctx,
		r.d.Rebind(`SELECT `+personColumns+` FROM persons WHERE id = ?`+r.d.ForUpdate), personID))
	if err != nil {
		return err
	}
	if p.MemberOf != "" && p.MemberOf != orgID {
		return repository.ErrAlreadyMember
	}
	if _, err := tx.ExecContext(ctx,
		r.d.Rebind(`UPDATE persons SET member_of = ?, admin_of = ? WHERE id = ?`),
		orgID, orgID, personID); err != nil {
		return fmt.Errorf("sqldb: grant admin: %w", err)
	}
	return tx.Commit()
}
