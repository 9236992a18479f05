package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feuc/declaraciones/internal/domain/repository"
)

const orgColumns = `id, name, acronym, type_of_org, created_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func newOrganization(in repository.NewOrganization, now time.Time) *repository.Organization {
	return &repository.Organization{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Acronym:   strings.TrimSpace(in.Acronym),
		Type:      strings.TrimSpace(in.Type),
		CreatedAt: now,
	}
}

func insertOrganization(ctx context.Context, q execer, d Dialect, o *repository.Organization) error {
	_, err := q.ExecContext(ctx, d.Rebind(`INSERT INTO organizations (`+orgColumns+`) VALUES (?, ?, ?, ?, ?)`),
		o.ID, o.Name, o.Acronym, o.Type, o.CreatedAt)
	return err
}

func scanOrganization(row rowScanner) (*repository.Organization, error) {
	var o repository.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Acronym, &o.Type, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

type orgRepo struct {
	q querier
	d Dialect
}

func (r *orgRepo) Create(ctx context.Context, in repository.NewOrganization) (*repository.Organization, error) {
	o := newOrganization(in, time.Now().UTC())
	if o.Name == "" || o.Acronym == "" {
		return nil, repository.ErrInvalidInput
	}
	if err := insertOrganization(ctx, r.q, r.d, o); err != nil {
		return nil, fmt.Errorf("sqldb: create organization: %w", err)
	}
	return o, nil
}

func (r *orgRepo) GetByID(ctx context.Context, id string) (*repository.Organization, error) {
	o, err := scanOrganization(r.q.QueryRowContext(ctx,
		r.d.Rebind(`SELECT `+orgColumns+` FROM organizations WHERE id = ?`), id))
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("sqldb: organization by id: %w", err)
	}
	return o, err
}

func (r *orgRepo) List(ctx context.Context) ([]repository.Organization, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqldb: list organizations: %w", err)
	}
	defer rows.Close()

	var out []repository.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
