package middlewares

import (
	"net/http"

	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/store"
)

// WithStoreScope reserva una conexión del store para el request y la
// devuelve al salir, también si el handler entra en panic.
func WithStoreScope(conn store.Connection, errs ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := conn.Acquire(r.Context())
			if err != nil {
				errs.Write(w, r, err)
				return
			}
			defer func() {
				if err := scope.Release(); err != nil {
					logger.From(r.Context()).Warn("release store scope", logger.Err(err))
				}
			}()
			next.ServeHTTP(w, r.WithContext(store.WithScope(r.Context(), scope)))
		})
	}
}
