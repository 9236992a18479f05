package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feuc/declaraciones/internal/domain/repository"
)

const statementSelect = `SELECT s.id, s.title, s.date_added, s.updated_at, s.submitted_by, s.organization_id,
	p.name, o.acronym
	FROM statements s
	JOIN persons p ON p.id = s.submitted_by
	JOIN organizations o ON o.id = s.organization_id`

type statementRepo struct {
	q querier
	d Dialect
}

func (r *statementRepo) Create(ctx context.Context, in repository.NewStatement) (*repository.Statement, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.SubmittedBy == "" || in.OrganizationID == "" {
		return nil, repository.ErrInvalidInput
	}
	now := time.Now().UTC()
	s := &repository.Statement{
		ID:             uuid.NewString(),
		Title:          title,
		DateAdded:      now,
		UpdatedAt:      now,
		SubmittedBy:    in.SubmittedBy,
		OrganizationID: in.OrganizationID,
	}
	_, err := r.q.ExecContext(ctx, r.d.Rebind(`INSERT INTO statements
		(id, title, date_added, updated_at, submitted_by, organization_id) VALUES (?, ?, ?, ?, ?, ?)`),
		s.ID, s.Title, s.DateAdded, s.UpdatedAt, s.SubmittedBy, s.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: create statement: %w", err)
	}
	return s, nil
}

func (r *statementRepo) query(ctx context.Context, q string, args ...any) ([]repository.Statement, error) {
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: list statements: %w", err)
	}
	defer rows.Close()

	var out []repository.Statement
	for rows.Next() {
		var s repository.Statement
		if err := rows.Scan(&s.ID, &s.Title, &s.DateAdded, &s.UpdatedAt, &s.SubmittedBy, &s.OrganizationID,
			&s.AuthorName, &s.OrgAcronym); err != nil {
			return nil, fmt.Errorf("sqldb: scan statement: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *statementRepo) List(ctx context.Context, limit int) ([]repository.Statement, error) {
	if limit > 0 {
		return r.query(ctx, statementSelect+` ORDER BY s.date_added DESC LIMIT ?`, limit)
	}
	return r.query(ctx, statementSelect+` ORDER BY s.date_added DESC`)
}

func (r *statementRepo) ListByOrganization(ctx context.Context, orgID string) ([]repository.Statement, error) {
	return r.query(ctx, statementSelect+` WHERE s.organization_id = ? ORDER BY s.date_added DESC`, orgID)
}
