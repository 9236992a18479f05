// Package helpers junta utilidades compartidas por los controllers.
package helpers

import (
	"errors"
	"net/http"

	"github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/session"
	"github.com/feuc/declaraciones/internal/store"
)

// ErrNoStoreScope indica un handler montado sin WithStoreScope.
var ErrNoStoreScope = errors.New("helpers: request without store scope")

// Page arma la página base con el principal y el token CSRF del request.
func Page(r *http.Request, title string) render.Page {
	return render.Page{
		Title: title,
		User:  session.PrincipalFrom(r.Context()),
		CSRF:  middlewares.CSRFToken(r.Context()),
	}
}

// Data retorna los repositorios del request.
func Data(r *http.Request) (store.DataAccess, error) {
	da, ok := store.From(r.Context())
	if !ok {
		return nil, ErrNoStoreScope
	}
	return da, nil
}

// SeeOther redirige con 303 para que el navegador siga con GET.
func SeeOther(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}
