// Package authz es la política de autorización del portal: una función pura
// de (principal, acción, recurso) sobre un conjunto cerrado de capacidades.
package authz

import (
	"errors"
	"strings"

	"github.com/feuc/declaraciones/internal/domain/repository"
)

// ErrForbidden es la única forma de denegación; no distingue "sin sesión" de "sin permiso".
var ErrForbidden = errors.New("forbidden")

// Capability es un conjunto de capacidades (bitmask).
type Capability uint8

const (
	CapAuthenticated Capability = 1 << iota
	CapRepresentative
	CapMember
	CapOrgAdmin
	CapSuperuser
)

// Has indica si c contiene todas las capacidades de required.
func (c Capability) Has(required Capability) bool {
	return c&required == required
}

func (c Capability) String() string {
	if c == 0 {
		return "anonymous"
	}
	names := []string{"authenticated", "representative", "member", "org_admin", "superuser"}
	var parts []string
	for i, n := range names {
		if c&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// Principal es el actor de un request.
type Principal struct {
	PersonID string
	Name     string
	Username string
	Email    string

	IsAuthenticated  bool
	IsRepresentative bool
	IsSuperuser      bool

	MemberOf string
	AdminOf  string
}

// Anonymous retorna el principal sin sesión.
func Anonymous() Principal {
	return Principal{}
}

// FromPerson arma el principal de una persona. Una persona inactiva es anónima.
func FromPerson(p *repository.Person) Principal {
	if p == nil || !p.IsActive {
		return Anonymous()
	}
	return Principal{
		PersonID:         p.ID,
		Name:             p.Name,
		Username:         p.Username,
		Email:            p.Email,
		IsAuthenticated:  p.IsAuthenticated,
		IsRepresentative: p.IsRepresentative,
		IsSuperuser:      p.IsSuperuser,
		MemberOf:         p.MemberOf,
		AdminOf:          p.AdminOf,
	}
}

// Capabilities deriva las capacidades del principal. Sin autenticación no hay ninguna.
func (p Principal) Capabilities() Capability {
	if !p.IsAuthenticated {
		return 0
	}
	c := CapAuthenticated
	if p.IsRepresentative {
		c |= CapRepresentative
	}
	if p.MemberOf != "" {
		c |= CapMember
		if p.AdminOf == p.MemberOf {
			c |= CapOrgAdmin
		}
	}
	if p.IsSuperuser {
		c |= CapSuperuser
	}
	return c
}

// Action es una operación protegida.
type Action int

const (
	ViewPublic Action = iota
	CreateStatement
	ViewOrganization
	ManageMembership
	Logout
)

var actionNames = map[Action]string{
	ViewPublic:       "view_public",
	CreateStatement:  "create_statement",
	ViewOrganization: "view_organization",
	ManageMembership: "manage_membership",
	Logout:           "logout",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

var required = map[Action]Capability{
	ViewPublic:       0,
	CreateStatement:  CapAuthenticated | CapRepresentative,
	ViewOrganization: CapAuthenticated | CapMember,
	ManageMembership: CapAuthenticated | CapMember | CapOrgAdmin,
	Logout:           CapAuthenticated,
}

// Required retorna las capacidades que exige a. Acciones desconocidas no se
// pueden satisfacer.
func Required(a Action) (Capability, bool) {
	c, ok := required[a]
	return c, ok
}

// Resource identifica sobre qué se actúa. El valor cero es "la organización
// del propio principal".
type Resource struct {
	OrgID string
}

// Allowed evalúa la política.
func Allowed(p Principal, a Action, r Resource) bool {
	need, ok := Required(a)
	if !ok {
		return false
	}
	if !p.Capabilities().Has(need) {
		return false
	}
	if r.OrgID == "" {
		return true
	}
	switch a {
	case ViewOrganization:
		return p.MemberOf == r.OrgID
	case ManageMembership:
		return p.MemberOf == r.OrgID && p.AdminOf == r.OrgID
	}
	return true
}

// Authorize es Allowed con error uniforme.
func Authorize(p Principal, a Action, r Resource) error {
	if !Allowed(p, a, r) {
		return ErrForbidden
	}
	return nil
}
