// Package publish contiene la página de carga de declaraciones.
package publish

import (
	"net/http"

	"github.com/feuc/declaraciones/internal/http/helpers"
	mw "github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/session"
	"github.com/feuc/declaraciones/internal/statements"
)

// FieldTitle es el campo del formulario.
const FieldTitle = "titulo"

type Controllers struct {
	pages      *render.Renderer
	errs       mw.ErrorWriter
	statements *statements.Service
}

func NewControllers(pages *render.Renderer, errs mw.ErrorWriter, st *statements.Service) *Controllers {
	return &Controllers{pages: pages, errs: errs, statements: st}
}

func (c *Controllers) form(w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	p := helpers.Page(r, "Publicar")
	p.Message = msg
	p.Data = title
	if err := c.pages.HTML(w, status, render.PageUpload, p); err != nil {
		logger.From(r.Context()).Error("render", logger.String("page", render.PageUpload), logger.Err(err))
		c.errs.Write(w, r, err)
	}
}

// Form atiende GET /crear.
func (c *Controllers) Form(w http.ResponseWriter, r *http.Request) {
	c.form(w, r, http.StatusOK, "", "")
}

// Create atiende POST /crear.
func (c *Controllers) Create(w http.ResponseWriter, r *http.Request) {
	da, err := helpers.Data(r)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	title := r.PostFormValue(FieldTitle)
	_, err = c.statements.Create(r.Context(), da.Statements(), session.PrincipalFrom(r.Context()), title)
	if err != nil {
		if msg, ok := statements.Message(err); ok {
			c.form(w, r, http.StatusUnprocessableEntity, title, msg)
			return
		}
		c.errs.Write(w, r, err)
		return
	}
	helpers.SeeOther(w, r, "/org")
}
