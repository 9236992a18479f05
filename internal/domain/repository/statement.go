package repository

import (
	"context"
	"time"
)

// Statement es una declaración publicada por un representante.
type Statement struct {
	ID             string
	Title          string
	DateAdded      time.Time
	UpdatedAt      time.Time
	SubmittedBy    string
	OrganizationID string

	// Campos de lectura (join), vacíos al crear.
	AuthorName string
	OrgAcronym string
}

type NewStatement struct {
	Title          string
	SubmittedBy    string
	OrganizationID string
}

type StatementRepository interface {
	Create(ctx context.Context, in NewStatement) (*Statement, error)
	// List retorna las declaraciones más recientes primero; limit <= 0 no limita.
	List(ctx context.Context, limit int) ([]Statement, error)
	ListByOrganization(ctx context.Context, orgID string) ([]Statement, error)
}
