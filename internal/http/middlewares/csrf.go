package middlewares

import (
	"net/http"
	"strings"

	"github.com/feuc/declaraciones/internal/auth/authz"
	tokens "github.com/feuc/declaraciones/internal/security/token"
)

// CSRFConfig configura el double-submit de formularios.
type CSRFConfig struct {
	CookieName string // default "csrf_token"
	FieldName  string // default "csrf_token"
	Secure     bool
	Errors     ErrorWriter
}

func isUnsafe(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// WithCSRF emite un token en cookie en requests seguros y, en métodos
// inseguros, exige que el formulario (o X-CSRF-Token) traiga el mismo valor.
func WithCSRF(cfg CSRFConfig) Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = "csrf_token"
	}
	if cfg.FieldName == "" {
		cfg.FieldName = "csrf_token"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current string
			if ck, err := r.Cookie(cfg.CookieName); err == nil {
				current = strings.TrimSpace(ck.Value)
			}

			if isUnsafe(r.Method) {
				sent := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
				if sent == "" {
					sent = strings.TrimSpace(r.PostFormValue(cfg.FieldName))
				}
				if current == "" || sent == "" || !tokens.Equal(sent, current) {
					cfg.Errors.Write(w, r, authz.ErrForbidden)
					return
				}
			}

			if current == "" {
				tok, err := tokens.GenerateOpaqueToken(24)
				if err != nil {
					cfg.Errors.Write(w, r, err)
					return
				}
				current = tok
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    current,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(setCSRFToken(r.Context(), current)))
		})
	}
}
