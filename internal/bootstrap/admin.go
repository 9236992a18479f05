// Package bootstrap agrupa las operaciones de operador que no tienen
// pantalla en el portal: crear organizaciones, marcar representantes y
// asignar administradores.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/store"
)

var (
	ErrMissingName    = errors.New("bootstrap: nombre y sigla son obligatorios")
	ErrMissingEmail   = errors.New("bootstrap: email es obligatorio")
	ErrUnknownPerson  = errors.New("bootstrap: la persona no existe (debe ingresar al portal al menos una vez)")
	ErrUnknownOrg     = errors.New("bootstrap: la organización no existe")
	ErrOtherOrgMember = errors.New("bootstrap: la persona pertenece a otra organización")
)

// CreateOrganization crea una organización nueva.
func CreateOrganization(ctx context.Context, da store.DataAccess, in repository.NewOrganization) (*repository.Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Acronym = strings.TrimSpace(in.Acronym)
	in.Type = strings.TrimSpace(in.Type)
	if in.Name == "" || in.Acronym == "" {
		return nil, ErrMissingName
	}
	o, err := da.Organizations().Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: crear organización: %w", err)
	}
	logger.From(ctx).Info("organización creada",
		logger.Component("bootstrap"),
		logger.OrgID(o.ID),
		logger.String("acronym", o.Acronym),
	)
	return o, nil
}

func personByEmail(ctx context.Context, da store.DataAccess, email string) (*repository.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingEmail
	}
	p, err := da.Persons().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownPerson
	}
	return p, err
}

// PromoteRepresentative marca como representante a la persona con ese email.
// El año, si viene, debe caer en el rango abierto de Representative.Validate.
func PromoteRepresentative(ctx context.Context, da store.DataAccess, email string, rep repository.Representative) (*repository.Person, error) {
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	p, err := personByEmail(ctx, da, email)
	if err != nil {
		return nil, err
	}
	if err := da.Persons().SetRepresentative(ctx, p.ID, rep); err != nil {
		return nil, fmt.Errorf("bootstrap: marcar representante: %w", err)
	}
	logger.From(ctx).Info("representante marcado",
		logger.Component("bootstrap"),
		logger.PersonID(p.ID),
		logger.String("type", rep.Type),
	)
	return da.Persons().GetByID(ctx, p.ID)
}

// MakeAdmin deja a la persona como miembro y admin de orgID.
func MakeAdmin(ctx context.Context, da store.DataAccess, email, orgID string) (*repository.Person, error) {
	p, err := personByEmail(ctx, da, email)
	if err != nil {
		return nil, err
	}
	if _, err := da.Organizations().GetByID(ctx, orgID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownOrg
		}
		return nil, err
	}
	switch err := da.Persons().GrantAdmin(ctx, p.ID, orgID); {
	case errors.Is(err, repository.ErrAlreadyMember):
		return nil, ErrOtherOrgMember
	case err != nil:
		return nil, fmt.Errorf("bootstrap: asignar admin: %w", err)
	}
	logger.From(ctx).Info("admin asignado",
		logger.Component("bootstrap"),
		logger.PersonID(p.ID),
		logger.OrgID(orgID),
	)
	return da.Persons().GetByID(ctx, p.ID)
}
