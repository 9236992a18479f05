package repository

import (
	"context"
	"fmt"
	"time"
)

// Rango abierto válido para el año de un representante.
const (
	RepresentativeYearMin = 2018
	RepresentativeYearMax = 3000
)

// Person es un principal registrado en la plataforma.
type Person struct {
	ID         string
	ExternalID string // "sub" del proveedor de identidad, único
	Name       string
	FirstName  string
	LastName   string
	Username   string // parte local del email
	Email      string

	IsRepresentative bool
	Representative   Representative

	IsActive        bool
	IsAuthenticated bool
	IsSuperuser     bool

	MemberOf string // ID de organización, "" si no pertenece a ninguna
	AdminOf  string // ID de organización, "" si no administra ninguna

	CreatedAt time.Time
}

// Representative contiene la metadata opcional de un representante.
type Representative struct {
	Type      string
	Territory string
	Career    string
	Year      int // 0 = sin año
}

// Validate revisa que el año, si está presente, caiga en el rango abierto.
func (r Representative) Validate() error {
	if r.Year == 0 {
		return nil
	}
	if r.Year <= RepresentativeYearMin || r.Year >= RepresentativeYearMax {
		return fmt.Errorf("%w: year %d fuera de (%d, %d)", ErrInvalidInput, r.Year, RepresentativeYearMin, RepresentativeYearMax)
	}
	return nil
}

// ProvisionInput contiene los datos verificados para crear una persona en su primer login.
type ProvisionInput struct {
	ExternalID string
	Email      string
	Username   string
	Name       string
	FirstName  string
	LastName   string

	// Superuser marca a la persona como superusuario y representante.
	Superuser bool
	// BootstrapOrg, si no es nil, se crea en la misma transacción y la
	// persona queda como miembro y admin de ella.
	BootstrapOrg *NewOrganization
}

// PersonRepository define las operaciones sobre personas.
type PersonRepository interface {
	GetByID(ctx context.Context, id string) (*Person, error)
	GetByExternalID(ctx context.Context, externalID string) (*Person, error)
	GetByEmail(ctx context.Context, email string) (*Person, error)

	// Provision inserta la persona o, si ya existe una con el mismo
	// ExternalID, retorna la existente. created indica si hubo inserción.
	Provision(ctx context.Context, in ProvisionInput) (p *Person, created bool, err error)

	ListRepresentatives(ctx context.Context) ([]Person, error)
	ListMembers(ctx context.Context, orgID string) ([]Person, error)

	// AddMember asigna orgID a la persona con ese username en una sola
	// transacción. Errores: ErrNotFound, ErrAmbiguous, ErrAlreadyMember.
	AddMember(ctx context.Context, username, orgID string) (*Person, error)

	// RemoveMember quita a la persona de orgID (y su rol admin, si lo tenía).
	// Errores: ErrNotFound, ErrAmbiguous, ErrNotMember.
	RemoveMember(ctx context.Context, username, orgID string) (*Person, error)

	// SetRepresentative marca a la persona como representante con la metadata dada.
	SetRepresentative(ctx context.Context, personID string, rep Representative) error

	// GrantAdmin deja a la persona como miembro y admin de orgID.
	// Falla con ErrAlreadyMember si pertenece a otra organización.
	GrantAdmin(ctx context.Context, personID, orgID string) error
}
