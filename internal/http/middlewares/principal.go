package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/feuc/declaraciones/internal/auth/authz"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/session"
	"github.com/feuc/declaraciones/internal/store"
)

var errNoStoreScope = errors.New("middlewares: request without store scope")

// PrincipalResolver resuelve el principal de un request.
type PrincipalResolver interface {
	Current(ctx context.Context, r *http.Request, persons repository.PersonRepository) (authz.Principal, error)
}

// WithPrincipal resuelve la sesión y deja el principal en el contexto.
// Requiere WithStoreScope antes en la cadena.
func WithPrincipal(sessions PrincipalResolver, errs ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			da, ok := store.From(r.Context())
			if !ok {
				errs.Write(w, r, errNoStoreScope)
				return
			}
			p, err := sessions.Current(r.Context(), r, da.Persons())
			if err != nil {
				errs.Write(w, r, err)
				return
			}
			ctx := session.WithPrincipal(r.Context(), p)
			if p.IsAuthenticated {
				ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.PersonID(p.PersonID)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require deja pasar solo si la política permite action sobre la
// organización del propio principal. Toda negación es el mismo 403.
func Require(action authz.Action, errs ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := session.PrincipalFrom(r.Context())
			if err := authz.Authorize(p, action, authz.Resource{}); err != nil {
				logger.From(r.Context()).Debug("forbidden",
					logger.String("action", action.String()),
					logger.String("capabilities", p.Capabilities().String()),
				)
				errs.Write(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
