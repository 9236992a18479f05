package server_test

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/cache"
	"github.com/feuc/declaraciones/internal/config"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/http/server"
	"github.com/feuc/declaraciones/internal/oauth/google/googletest"
	"github.com/feuc/declaraciones/internal/store"
	"github.com/feuc/declaraciones/internal/store/storetest"
)

type portal struct {
	ts   *httptest.Server
	idp  *googletest.Server
	conn store.Connection
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	idp := googletest.NewServer()
	t.Cleanup(idp.Close)

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.Server.BaseURL = ts.URL
	cfg.Server.Metrics = true
	cfg.Session.Secret = "secreto-de-pruebas-con-32-bytes!!"
	cfg.Google.ClientID = idp.ClientID
	cfg.Google.ClientSecret = idp.ClientSecret
	cfg.Google.DiscoveryURL = idp.DiscoveryURL()
	cfg.Auth.Superusers = []string{"admin@uc.cl"}

	conn := storetest.Open(t)
	app, err := server.Build(context.Background(), cfg, server.Options{Store: conn, Cache: cache.NewMemory("")})
	require.NoError(t, err)
	handler = app.Handler

	return &portal{ts: ts, idp: idp, conn: conn}
}

// browser es un cliente con cookies que no sigue redirects.
func (p *portal) browser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (p *portal) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(p.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

// login hace el ida y vuelta con el proveedor falso y retorna el status del callback.
func (p *portal) login(t *testing.T, c *http.Client, code string, u googletest.User) (*http.Response, string) {
	t.Helper()
	p.idp.AddCode(code, u)

	resp, _ := p.get(t, c, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.String(), p.idp.URL+"/auth"))
	assert.Equal(t, p.ts.URL+"/login/callback", loc.Query().Get("redirect_uri"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	q := url.Values{"code": {code}, "state": {loc.Query().Get("state")}}
	return p.get(t, c, "/login/callback?"+q.Encode())
}

func (p *portal) countPersons(t *testing.T) int {
	db, ok := p.conn.(interface{ SQL() *sql.DB })
	require.True(t, ok)
	var n int
	require.NoError(t, db.SQL().QueryRow(`SELECT COUNT(*) FROM persons`).Scan(&n))
	return n
}

func TestAnonymousProtectedPagesAreForbidden(t *testing.T) {
	p := newPortal(t)
	c := p.browser(t)

	for _, path := range []string{"/org", "/miembros", "/ajustes", "/crear", "/logout"} {
		resp, body := p.get(t, c, path)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		assert.Contains(t, body, `href="/login"`, path)
	}

	for _, path := range []string{"/", "/declaraciones", "/representantes"} {
		resp, _ := p.get(t, c, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, body := p.get(t, c, "/no-existe")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Página no encontrada")
}

func TestNonRepresentativeCannotUpload(t *testing.T) {
	p := newPortal(t)
	c := p.browser(t)

	resp, _ := p.login(t, c, "c1", googletest.User{Sub: "g1", Email: "ana@uc.cl", EmailVerified: true, Name: "Ana"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := p.get(t, c, "/crear")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, `href="/logout"`)

	resp, _ = p.get(t, c, "/org")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRepeatedLoginReusesPerson(t *testing.T) {
	p := newPortal(t)
	user := googletest.User{Sub: "g123", Email: "new.person@uc.cl", EmailVerified: true, Name: "New Person", GivenName: "New", FamilyName: "Person"}

	resp, _ := p.login(t, p.browser(t), "c1", user)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	require.Equal(t, 1, p.countPersons(t))

	first, err := p.conn.Persons().GetByExternalID(context.Background(), "g123")
	require.NoError(t, err)
	assert.False(t, first.IsRepresentative)
	assert.Equal(t, "new.person", first.Username)

	resp, _ = p.login(t, p.browser(t), "c2", user)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, 1, p.countPersons(t))

	again, err := p.conn.Persons().GetByExternalID(context.Background(), "g123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestAdminManagesMembers(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()
	admin := p.browser(t)

	resp, _ := p.login(t, admin, "c-admin", googletest.User{Sub: "g-admin", Email: "admin@uc.cl", EmailVerified: true, Name: "Admin"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = p.login(t, p.browser(t), "c-bob", googletest.User{Sub: "g-bob", Email: "bob@uc.cl", EmailVerified: true, Name: "Bob"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	a, err := p.conn.Persons().GetByExternalID(ctx, "g-admin")
	require.NoError(t, err)
	require.NotEmpty(t, a.AdminOf)
	require.Equal(t, a.AdminOf, a.MemberOf)

	q := url.Values{"usuario": {"bob"}, "añadir": {"1"}}.Encode()
	resp, body := p.get(t, admin, "/ajustes?"+q)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Usuario añadido.")

	bob, err := p.conn.Persons().GetByExternalID(ctx, "g-bob")
	require.NoError(t, err)
	assert.Equal(t, a.MemberOf, bob.MemberOf)

	resp, body = p.get(t, admin, "/ajustes?"+q)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "El usuario ya pertenece a una organización.")

	bob2, err := p.conn.Persons().GetByExternalID(ctx, "g-bob")
	require.NoError(t, err)
	assert.Equal(t, bob.MemberOf, bob2.MemberOf)
	assert.Empty(t, bob2.AdminOf)

	// la lista de miembros del admin ahora incluye a bob
	resp, body = p.get(t, admin, "/miembros")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "(bob)")

	resp, body = p.get(t, admin, "/ajustes?"+url.Values{"usuario": {"nadie@uc.cl"}, "remover": {"1"}}.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "El usuario no está en la plataforma.")

	resp, body = p.get(t, admin, "/ajustes?"+url.Values{"usuario": {"bob"}, "remover": {"1"}}.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Usuario removido.")
	bob3, err := p.conn.Persons().GetByExternalID(ctx, "g-bob")
	require.NoError(t, err)
	assert.Empty(t, bob3.MemberOf)
}

func TestCallbackRejections(t *testing.T) {
	p := newPortal(t)

	resp, body := p.login(t, p.browser(t), "c1", googletest.User{Sub: "g1", Email: "x@uc.cl", EmailVerified: false})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Email no disponible o no verificado.")

	resp, _ = p.login(t, p.browser(t), "c2", googletest.User{Sub: "g2", Email: "x@gmail.com", EmailVerified: true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	p.idp.FailToken.Store(true)
	resp, _ = p.login(t, p.browser(t), "c3", googletest.User{Sub: "g3", Email: "y@uc.cl", EmailVerified: true})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Equal(t, 0, p.countPersons(t))
}

func TestPublishAndLogout(t *testing.T) {
	p := newPortal(t)
	c := p.browser(t)

	resp, _ := p.login(t, c, "c-admin", googletest.User{Sub: "g-admin", Email: "admin@uc.cl", EmailVerified: true, Name: "Admin"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body := p.get(t, c, "/crear")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="csrf_token"`)

	u, err := url.Parse(p.ts.URL)
	require.NoError(t, err)
	var csrf string
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == "csrf_token" {
			csrf = ck.Value
		}
	}
	require.NotEmpty(t, csrf)

	post := func(form url.Values) *http.Response {
		resp, err := c.PostForm(p.ts.URL+"/crear", form)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}
	assert.Equal(t, http.StatusForbidden, post(url.Values{"titulo": {"Sin token"}}).StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, post(url.Values{"titulo": {"  "}, "csrf_token": {csrf}}).StatusCode)

	resp = post(url.Values{"titulo": {"Declaración sobre el paro"}, "csrf_token": {csrf}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = p.get(t, c, "/declaraciones")
	assert.Contains(t, body, "Declaración sobre el paro")
	assert.Contains(t, body, "CAi")

	_, body = p.get(t, c, "/representantes")
	assert.Contains(t, body, "Admin")

	resp, _ = p.get(t, c, "/logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = p.get(t, c, "/org")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	p := newPortal(t)
	c := p.browser(t)

	resp, body := p.get(t, c, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	p.get(t, c, "/")
	resp, body = p.get(t, c, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "go_sql_open_connections")
}

func TestPersonRemovedFromStoreIsAnonymous(t *testing.T) {
	p := newPortal(t)
	c := p.browser(t)
	resp, _ := p.login(t, c, "c1", googletest.User{Sub: "g1", Email: "ana@uc.cl", EmailVerified: true})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	ana, err := p.conn.Persons().GetByExternalID(context.Background(), "g1")
	require.NoError(t, err)
	db := p.conn.(interface{ SQL() *sql.DB }).SQL()
	_, err = db.Exec(`DELETE FROM persons WHERE id = ?`, ana.ID)
	require.NoError(t, err)

	resp, body := p.get(t, c, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="/login"`)
	_, err = p.conn.Persons().GetByID(context.Background(), ana.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
