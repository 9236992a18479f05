package repository

import (
	"context"
	"time"
)

// Organization es un centro de estudiantes u organización similar.
type Organization struct {
	ID        string
	Name      string
	Acronym   string
	Type      string
	CreatedAt time.Time
}

// NewOrganization contiene los datos para crear una organización.
type NewOrganization struct {
	Name    string
	Acronym string
	Type    string
}

type OrganizationRepository interface {
	Create(ctx context.Context, in NewOrganization) (*Organization, error)
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
}
