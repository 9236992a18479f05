// Package auth contiene /login, /login/callback y /logout.
package auth

import (
	"context"
	"net/http"

	"github.com/feuc/declaraciones/internal/audit"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/http/helpers"
	mw "github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/session"
)

// LoginFlow es el handshake con el proveedor.
type LoginFlow interface {
	Begin(ctx context.Context, w http.ResponseWriter) (string, error)
	Complete(ctx context.Context, w http.ResponseWriter, r *http.Request, persons repository.PersonRepository) (*repository.Person, error)
}

// SessionTerminator cierra la sesión del request.
type SessionTerminator interface {
	Terminate(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

type Controllers struct {
	flow     LoginFlow
	sessions SessionTerminator
	errs     mw.ErrorWriter
}

func NewControllers(flow LoginFlow, sessions SessionTerminator, errs mw.ErrorWriter) *Controllers {
	return &Controllers{flow: flow, sessions: sessions, errs: errs}
}

// Login atiende GET /login: redirige al proveedor.
func (c *Controllers) Login(w http.ResponseWriter, r *http.Request) {
	to, err := c.flow.Begin(r.Context(), w)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	http.Redirect(w, r, to, http.StatusFound)
}

// Callback atiende GET /login/callback. Cualquier falla aborta el login
// sin sesión; la página de error depende del tipo de falla.
func (c *Controllers) Callback(w http.ResponseWriter, r *http.Request) {
	da, err := helpers.Data(r)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	if _, err := c.flow.Complete(r.Context(), w, r, da.Persons()); err != nil {
		logger.From(r.Context()).Info("login rechazado", logger.Err(err))
		c.errs.Write(w, r, err)
		return
	}
	helpers.SeeOther(w, r, "/")
}

// Logout atiende GET /logout.
func (c *Controllers) Logout(w http.ResponseWriter, r *http.Request) {
	p := session.PrincipalFrom(r.Context())
	if err := c.sessions.Terminate(r.Context(), w, r); err != nil {
		logger.From(r.Context()).Warn("logout", logger.Err(err))
	}
	audit.Log(r.Context(), audit.EventLogout, logger.PersonID(p.PersonID))
	helpers.SeeOther(w, r, "/")
}
