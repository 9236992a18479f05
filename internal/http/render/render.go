// Package render arma las páginas HTML desde plantillas embebidas.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/feuc/declaraciones/internal/auth/authz"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Nombres de página.
const (
	PageHome            = "home"
	PageStatements      = "declaraciones"
	PageRepresentatives = "representantes"
	PageUpload          = "crear"
	PageOrganization    = "org"
	PageMembers         = "miembros"
	PageSettings        = "ajustes"
)

// Page es lo que recibe toda plantilla. User siempre está presente para
// que el layout muestre los enlaces según la sesión.
type Page struct {
	Title   string
	User    authz.Principal
	Message string
	CSRF    string // se reenvía en los formularios POST
	Data    any
}

// Renderer mantiene las plantillas parseadas, una por página.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02-01-2006")
	},
	"upper": strings.ToUpper,
}

// New parsea base.html junto a cada página de templates/.
func New() (*Renderer, error) {
	return NewFromFS(templatesFS, "templates")
}

func NewFromFS(fsys fs.FS, dir string) (*Renderer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("render: read templates: %w", err)
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".html")
		if e.IsDir() || name == "base" || name == e.Name() {
			continue
		}
		t, err := template.New("base.html").Funcs(funcs).ParseFS(fsys, dir+"/base.html", dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", e.Name(), err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Has indica si existe la página name.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// HTML renderiza name con status. Se ejecuta sobre un buffer para no
// escribir una respuesta a medias si la plantilla falla.
func (r *Renderer) HTML(w http.ResponseWriter, status int, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("render: unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return fmt.Errorf("render: execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
