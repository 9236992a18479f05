// Package public contiene las páginas sin autenticación: inicio,
// declaraciones y representantes.
package public

import (
	"net/http"

	"github.com/feuc/declaraciones/internal/http/helpers"
	mw "github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/statements"
)

type Controllers struct {
	pages      *render.Renderer
	errs       mw.ErrorWriter
	statements *statements.Service
}

func NewControllers(pages *render.Renderer, errs mw.ErrorWriter, st *statements.Service) *Controllers {
	return &Controllers{pages: pages, errs: errs, statements: st}
}

func (c *Controllers) render(w http.ResponseWriter, r *http.Request, name string, p render.Page) {
	if err := c.pages.HTML(w, http.StatusOK, name, p); err != nil {
		logger.From(r.Context()).Error("render", logger.String("page", name), logger.Err(err))
		c.errs.Write(w, r, err)
	}
}

// Home atiende GET /.
func (c *Controllers) Home(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, render.PageHome, helpers.Page(r, ""))
}

// Statements atiende GET /declaraciones.
func (c *Controllers) Statements(w http.ResponseWriter, r *http.Request) {
	da, err := helpers.Data(r)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	list, err := c.statements.List(r.Context(), da.Statements())
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	p := helpers.Page(r, "Declaraciones")
	p.Data = list
	c.render(w, r, render.PageStatements, p)
}

// Representatives atiende GET /representantes.
func (c *Controllers) Representatives(w http.ResponseWriter, r *http.Request) {
	da, err := helpers.Data(r)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	reps, err := da.Persons().ListRepresentatives(r.Context())
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	p := helpers.Page(r, "Representantes")
	p.Data = reps
	c.render(w, r, render.PageRepresentatives, p)
}
