// Package membership implementa altas y bajas de miembros de una
// organización. El llamador ya verificó que el actor administra orgID.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feuc/declaraciones/internal/audit"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/metrics"
	"github.com/feuc/declaraciones/internal/observability/logger"
)

var (
	ErrPersonNotFound      = errors.New("membership: person not found")
	ErrAlreadyMember       = errors.New("membership: person already belongs to an organization")
	ErrNotInOrganization   = errors.New("membership: person is not in the organization")
	ErrAmbiguousUsername   = errors.New("membership: username matches more than one person")
	ErrEmptyUsername       = errors.New("membership: empty username")
	ErrMissingOrganization = errors.New("membership: missing organization")
)

// Mensajes en línea de la página de ajustes.
const (
	MsgPersonNotFound    = "El usuario no está en la plataforma."
	MsgAlreadyMember     = "El usuario ya pertenece a una organización."
	MsgNotInOrganization = "El usuario no está en tu organización."
	MsgAmbiguousUsername = "Hay más de un usuario con ese nombre."
	MsgEmptyUsername     = "Debes indicar un usuario."
	MsgNoAction          = "Indica si quieres añadir o remover al usuario."
	MsgAdded             = "Usuario añadido."
	MsgRemoved           = "Usuario removido."
)

// Message traduce el resultado de una mutación al mensaje de ajustes.
// ok indica que err es una precondición conocida y no una falla interna.
func Message(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, ErrPersonNotFound):
		return MsgPersonNotFound, true
	case errors.Is(err, ErrAlreadyMember):
		return MsgAlreadyMember, true
	case errors.Is(err, ErrNotInOrganization):
		return MsgNotInOrganization, true
	case errors.Is(err, ErrAmbiguousUsername):
		return MsgAmbiguousUsername, true
	case errors.Is(err, ErrEmptyUsername):
		return MsgEmptyUsername, true
	}
	return "", false
}

// NormalizeUsername quita un sufijo @dominio y espacios.
func NormalizeUsername(s string) string {
	s = strings.TrimSpace(s)
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	return strings.ToLower(s)
}

// Service ejecuta las mutaciones sobre el repositorio del request.
type Service struct{}

func New() *Service { return &Service{} }

// AddMember asigna orgID a la persona con targetUsername.
func (s *Service) AddMember(ctx context.Context, persons repository.PersonRepository, targetUsername, orgID string) (*repository.Person, error) {
	return s.mutate(ctx, "add", targetUsername, orgID, persons.AddMember)
}

// RemoveMember quita a la persona de orgID; si la administraba, pierde también ese rol.
func (s *Service) RemoveMember(ctx context.Context, persons repository.PersonRepository, targetUsername, orgID string) (*repository.Person, error) {
	return s.mutate(ctx, "remove", targetUsername, orgID, persons.RemoveMember)
}

type mutation func(ctx context.Context, username, orgID string) (*repository.Person, error)

func (s *Service) mutate(ctx context.Context, op, targetUsername, orgID string, fn mutation) (*repository.Person, error) {
	log := logger.From(ctx).With(logger.Component("membership"), logger.Op(op), logger.OrgID(orgID))

	username := NormalizeUsername(targetUsername)
	if username == "" {
		metrics.MembershipChanges.WithLabelValues(op, "rejected").Inc()
		return nil, ErrEmptyUsername
	}
	if orgID == "" {
		return nil, ErrMissingOrganization
	}

	p, err := fn(ctx, username, orgID)
	if err != nil {
		mapped := mapErr(err)
		if _, known := Message(mapped); known {
			metrics.MembershipChanges.WithLabelValues(op, "rejected").Inc()
			log.Info("mutación rechazada", logger.Username(username), logger.Err(mapped))
			return nil, mapped
		}
		metrics.MembershipChanges.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("membership %s: %w", op, err)
	}

	metrics.MembershipChanges.WithLabelValues(op, "ok").Inc()
	event := audit.EventMemberAdded
	if op == "remove" {
		event = audit.EventMemberRemoved
	}
	audit.Log(ctx, event, logger.OrgID(orgID), logger.PersonID(p.ID), logger.Username(username))
	return p, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrPersonNotFound
	case errors.Is(err, repository.ErrAmbiguous):
		return ErrAmbiguousUsername
	case errors.Is(err, repository.ErrAlreadyMember):
		return ErrAlreadyMember
	case errors.Is(err, repository.ErrNotMember):
		return ErrNotInOrganization
	}
	return err
}
