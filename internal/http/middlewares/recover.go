package middlewares

import (
	"fmt"
	"net/http"
	"runtime/debug"

	httperrors "github.com/feuc/declaraciones/internal/http/errors"
	"github.com/feuc/declaraciones/internal/observability/logger"
)

// WithRecover convierte un panic en la página 500.
func WithRecover(errs ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.From(r.Context()).Error("panic recovered",
					logger.Op("recover"),
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())),
				)
				errs.Write(w, r, httperrors.ErrInternal.WithCause(fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
