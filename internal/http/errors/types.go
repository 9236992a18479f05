// Package errors traduce errores de dominio a las páginas de error HTTP.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/feuc/declaraciones/internal/auth/authz"
	"github.com/feuc/declaraciones/internal/auth/provisioning"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/oauth/google"
)

// AppError es un error con su status HTTP. Err es la causa, solo para logs.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithCause retorna una copia con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrEmailUnavailable = &AppError{
		Code:       "EMAIL_UNAVAILABLE",
		Message:    "Email no disponible o no verificado.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Acceso denegado.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Página no encontrada.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Demasiadas solicitudes.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL",
		Message:    "Error interno.",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// FromError mapea un error de cualquier capa a un AppError. Lo desconocido es 500.
func FromError(err error) *AppError {
	var appErr *AppError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, authz.ErrForbidden),
		stderrors.Is(err, provisioning.ErrDomainNotAllowed),
		stderrors.Is(err, provisioning.ErrInvalidEmail):
		return ErrForbidden.WithCause(err)
	case stderrors.Is(err, google.ErrUnverifiedEmail):
		return ErrEmailUnavailable.WithCause(err)
	case stderrors.Is(err, repository.ErrNotFound):
		return ErrNotFound.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}
