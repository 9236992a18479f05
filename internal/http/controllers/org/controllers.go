// Package org contiene las páginas de la organización del principal:
// ficha, miembros y ajustes de membresía.
package org

import (
	"net/http"
	"strings"

	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/http/helpers"
	mw "github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/membership"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/session"
	"github.com/feuc/declaraciones/internal/statements"
)

// Query params de /ajustes.
const (
	ParamUsername = "usuario"
	ParamAdd      = "añadir"
	ParamRemove   = "remover"
)

type Controllers struct {
	pages      *render.Renderer
	errs       mw.ErrorWriter
	statements *statements.Service
	membership *membership.Service
}

func NewControllers(pages *render.Renderer, errs mw.ErrorWriter, st *statements.Service, ms *membership.Service) *Controllers {
	return &Controllers{pages: pages, errs: errs, statements: st, membership: ms}
}

type orgView struct {
	Organization *repository.Organization
	Statements   []repository.Statement
}

type membersView struct {
	Organization *repository.Organization
	Members      []repository.Person
	Username     string
}

func (c *Controllers) render(w http.ResponseWriter, r *http.Request, name string, p render.Page) {
	if err := c.pages.HTML(w, http.StatusOK, name, p); err != nil {
		logger.From(r.Context()).Error("render", logger.String("page", name), logger.Err(err))
		c.errs.Write(w, r, err)
	}
}

// Organization atiende GET /org.
func (c *Controllers) Organization(w http.ResponseWriter, r *http.Request) {
	da, err := helpers.Data(r)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	orgID := session.PrincipalFrom(r.Context()).MemberOf
	o, err := da.Organizations().GetByID(r.Context(), orgID)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	list, err := c.statements.ForOrganization(r.Context(), da.Statements(), orgID)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	p := helpers.Page(r, o.Name)
	p.Data = orgView{Organization: o, Statements: list}
	c.render(w, r, render.PageOrganization, p)
}

func (c *Controllers) members(r *http.Request, orgID string) (*membersView, error) {
	da, err := helpers.Data(r)
	if err != nil {
		return nil, err
	}
	o, err := da.Organizations().GetByID(r.Context(), orgID)
	if err != nil {
		return nil, err
	}
	members, err := da.Persons().ListMembers(r.Context(), orgID)
	if err != nil {
		return nil, err
	}
	return &membersView{Organization: o, Members: members}, nil
}

// Members atiende GET /miembros.
func (c *Controllers) Members(w http.ResponseWriter, r *http.Request) {
	view, err := c.members(r, session.PrincipalFrom(r.Context()).MemberOf)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	p := helpers.Page(r, "Miembros")
	p.Data = view
	c.render(w, r, render.PageMembers, p)
}

// Settings atiende GET /ajustes. Con usuario y exactamente uno de los
// flags añadir/remover ejecuta la mutación; el resultado va como mensaje
// en línea, nunca como error HTTP.
func (c *Controllers) Settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := session.PrincipalFrom(ctx)
	q := r.URL.Query()
	username := strings.TrimSpace(q.Get(ParamUsername))
	add, remove := q.Has(ParamAdd), q.Has(ParamRemove)

	var msg string
	if username != "" || add || remove {
		da, err := helpers.Data(r)
		if err != nil {
			c.errs.Write(w, r, err)
			return
		}
		switch {
		case add == remove:
			msg = membership.MsgNoAction
		case add:
			_, err = c.membership.AddMember(ctx, da.Persons(), username, admin.AdminOf)
			msg = membership.MsgAdded
		default:
			_, err = c.membership.RemoveMember(ctx, da.Persons(), username, admin.AdminOf)
			msg = membership.MsgRemoved
		}
		if err != nil {
			known, ok := membership.Message(err)
			if !ok {
				c.errs.Write(w, r, err)
				return
			}
			msg = known
		}
	}

	view, err := c.members(r, admin.AdminOf)
	if err != nil {
		c.errs.Write(w, r, err)
		return
	}
	view.Username = username
	p := helpers.Page(r, "Ajustes")
	p.Message = msg
	p.Data = view
	c.render(w, r, render.PageSettings, p)
}
