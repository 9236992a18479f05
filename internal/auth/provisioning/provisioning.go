// Package provisioning convierte claims verificados del proveedor en una Person local.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feuc/declaraciones/internal/audit"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/metrics"
	"github.com/feuc/declaraciones/internal/oauth/google"
	"github.com/feuc/declaraciones/internal/observability/logger"
)

var (
	// ErrDomainNotAllowed indica que el dominio del email no es institucional.
	ErrDomainNotAllowed = errors.New("provisioning: email domain not allowed")

	// ErrInvalidEmail indica un email sin forma local@dominio.
	ErrInvalidEmail = errors.New("provisioning: invalid email")
)

// Config son las listas fijas que gobiernan el alta.
type Config struct {
	AllowedDomains []string
	Superusers     []string
	BootstrapOrg   repository.NewOrganization
}

// Service aplica allow-list de dominios y bootstrap de superusuarios.
type Service struct {
	allowed    map[string]struct{}
	superusers map[string]struct{}
	bootstrap  repository.NewOrganization
}

func New(cfg Config) *Service {
	s := &Service{
		allowed:    make(map[string]struct{}, len(cfg.AllowedDomains)),
		superusers: make(map[string]struct{}, len(cfg.Superusers)),
		bootstrap:  cfg.BootstrapOrg,
	}
	for _, d := range cfg.AllowedDomains {
		if d = normalize(d); d != "" {
			s.allowed[d] = struct{}{}
		}
	}
	for _, e := range cfg.Superusers {
		if e = normalize(e); e != "" {
			s.superusers[e] = struct{}{}
		}
	}
	return s
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitEmail separa la parte local (username) del dominio.
func SplitEmail(email string) (local, domain string, err error) {
	email = normalize(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", ErrInvalidEmail
	}
	return email[:at], email[at+1:], nil
}

// DomainAllowed indica si el dominio está en la allow-list.
func (s *Service) DomainAllowed(domain string) bool {
	_, ok := s.allowed[normalize(domain)]
	return ok
}

// IsSuperuser indica si el email está en la lista de superusuarios.
func (s *Service) IsSuperuser(email string) bool {
	_, ok := s.superusers[normalize(email)]
	return ok
}

// Provision busca o crea la Person para claims. Es idempotente por Subject:
// la creación la resuelve el repositorio como insert-or-fetch.
func (s *Service) Provision(ctx context.Context, persons repository.PersonRepository, claims google.VerifiedClaims) (*repository.Person, error) {
	log := logger.From(ctx).With(logger.Component("provisioning"))

	username, domain, err := SplitEmail(claims.Email)
	if err != nil {
		return nil, err
	}
	if !s.DomainAllowed(domain) {
		log.Info("dominio rechazado", logger.Email(claims.Email))
		return nil, ErrDomainNotAllowed
	}

	in := repository.ProvisionInput{
		ExternalID: claims.Subject,
		Email:      normalize(claims.Email),
		Username:   username,
		Name:       claims.Name,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
	}
	if s.IsSuperuser(in.Email) {
		org := s.bootstrap
		in.Superuser = true
		in.BootstrapOrg = &org
	}

	p, created, err := persons.Provision(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("provisioning: %w", err)
	}
	if created {
		metrics.PersonsProvisioned.Inc()
		audit.Log(ctx, audit.EventPersonCreated,
			logger.PersonID(p.ID),
			logger.Email(p.Email),
			logger.Bool("superuser", p.IsSuperuser),
		)
	}
	return p, nil
}
