// Package statements publica y lista declaraciones de representantes.
package statements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/feuc/declaraciones/internal/audit"
	"github.com/feuc/declaraciones/internal/auth/authz"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/metrics"
	"github.com/feuc/declaraciones/internal/observability/logger"
)

// MaxTitleLength es el largo máximo del título, en runas.
const MaxTitleLength = 200

// DefaultListLimit acota el listado público.
const DefaultListLimit = 100

var (
	ErrEmptyTitle     = errors.New("statements: empty title")
	ErrTitleTooLong   = errors.New("statements: title too long")
	ErrNoOrganization = errors.New("statements: representative without organization")
)

// Mensajes en línea de la página de carga.
const (
	MsgEmptyTitle     = "El título no puede estar vacío."
	MsgTitleTooLong   = "El título es demasiado largo."
	MsgNoOrganization = "Debes pertenecer a una organización para publicar."
	MsgCreated        = "Declaración publicada."
)

// Message traduce un error de validación al mensaje de la página de carga.
func Message(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrEmptyTitle):
		return MsgEmptyTitle, true
	case errors.Is(err, ErrTitleTooLong):
		return MsgTitleTooLong, true
	case errors.Is(err, ErrNoOrganization):
		return MsgNoOrganization, true
	}
	return "", false
}

type Service struct {
	listLimit int
}

func New() *Service { return &Service{listLimit: DefaultListLimit} }

// List retorna las declaraciones más recientes.
func (s *Service) List(ctx context.Context, repo repository.StatementRepository) ([]repository.Statement, error) {
	return repo.List(ctx, s.listLimit)
}

// ForOrganization retorna las declaraciones de orgID.
func (s *Service) ForOrganization(ctx context.Context, repo repository.StatementRepository, orgID string) ([]repository.Statement, error) {
	return repo.ListByOrganization(ctx, orgID)
}

// Create publica una declaración a nombre de author, afiliada a su organización.
func (s *Service) Create(ctx context.Context, repo repository.StatementRepository, author authz.Principal, title string) (*repository.Statement, error) {
	if err := authz.Authorize(author, authz.CreateStatement, authz.Resource{}); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return nil, ErrEmptyTitle
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return nil, ErrTitleTooLong
	case author.MemberOf == "":
		return nil, ErrNoOrganization
	}

	st, err := repo.Create(ctx, repository.NewStatement{
		Title:          title,
		SubmittedBy:    author.PersonID,
		OrganizationID: author.MemberOf,
	})
	if err != nil {
		return nil, fmt.Errorf("statements: create: %w", err)
	}
	metrics.StatementsCreated.Inc()
	audit.Log(ctx, audit.EventStatementAdded,
		logger.PersonID(author.PersonID),
		logger.OrgID(author.MemberOf),
		logger.String("statement_id", st.ID),
	)
	return st, nil
}
