package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/auth/authz"
	"github.com/feuc/declaraciones/internal/domain/repository"
	httperrors "github.com/feuc/declaraciones/internal/http/errors"
	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/rate"
	"github.com/feuc/declaraciones/internal/session"
	"github.com/feuc/declaraciones/internal/store"
	"github.com/feuc/declaraciones/internal/store/storetest"
)

// plain escribe errores como texto, sin plantillas.
var plain = httperrors.NewWriter(nil)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestChain_Order(t *testing.T) {
	var got []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = append(got, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(ok), mk("a"), mk("b"), mk("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
}

func TestRecover_Renders500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover(plain))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecover_InsidePrincipalKeepsNav(t *testing.T) {
	pages, err := render.New()
	require.NoError(t, err)
	errs := httperrors.NewWriter(pages)
	conn := storetest.Open(t)
	ana := authz.Principal{PersonID: "p", Username: "ana", IsAuthenticated: true, MemberOf: "o"}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		WithRecover(errs),
		WithStoreScope(conn, errs),
		WithPrincipal(fakeResolver{p: ana}, errs),
		WithRecover(errs),
	)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/org", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Error interno")
	assert.Contains(t, body, `<span class="user">ana</span>`)
	assert.Contains(t, body, `href="/logout"`)
	assert.NotContains(t, body, `href="/login"`)
}

// countingConn envuelve un store para contar scopes abiertos.
type countingConn struct {
	store.Connection
	open int
}

type countingScope struct {
	store.Scope
	c *countingConn
}

func (s *countingScope) Release() error {
	s.c.open--
	return s.Scope.Release()
}

func (c *countingConn) Acquire(ctx context.Context) (store.Scope, error) {
	s, err := c.Connection.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.open++
	return &countingScope{Scope: s, c: c}, nil
}

func TestStoreScope_ReleasedOnPanic(t *testing.T) {
	conn := &countingConn{Connection: storetest.Open(t)}

	var inside bool
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, inside = store.From(r.Context())
		panic("boom")
	}), WithRecover(plain), WithStoreScope(conn, plain))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, inside)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, conn.open)
}

type fakeResolver struct {
	p   authz.Principal
	err error
}

func (f fakeResolver) Current(context.Context, *http.Request, repository.PersonRepository) (authz.Principal, error) {
	return f.p, f.err
}

func TestPrincipalAndRequire(t *testing.T) {
	conn := storetest.Open(t)
	member := authz.Principal{PersonID: "p", IsAuthenticated: true, MemberOf: "o"}

	run := func(p authz.Principal, action authz.Action) int {
		h := Chain(http.HandlerFunc(ok),
			WithStoreScope(conn, plain),
			WithPrincipal(fakeResolver{p: p}, plain),
			Require(action, plain),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, run(authz.Anonymous(), authz.ViewOrganization))
	assert.Equal(t, http.StatusNoContent, run(member, authz.ViewOrganization))
	assert.Equal(t, http.StatusForbidden, run(member, authz.ManageMembership))
	assert.Equal(t, http.StatusForbidden, run(member, authz.CreateStatement))
	assert.Equal(t, http.StatusNoContent, run(authz.Anonymous(), authz.ViewPublic))
}

func TestPrincipal_SetsContext(t *testing.T) {
	conn := storetest.Open(t)
	want := authz.Principal{PersonID: "p", IsAuthenticated: true}
	var got authz.Principal
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = session.PrincipalFrom(r.Context())
	}), WithStoreScope(conn, plain), WithPrincipal(fakeResolver{p: want}, plain))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, want, got)

	// sin scope no hay a quién preguntar
	rec := httptest.NewRecorder()
	Chain(http.HandlerFunc(ok), WithPrincipal(fakeResolver{p: want}, plain)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCSRF(t *testing.T) {
	var token string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), WithCSRF(CSRFConfig{Errors: plain}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/crear", nil))
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, token, cookies[0].Value)

	post := func(value string) int {
		form := url.Values{"csrf_token": {value}, "titulo": {"x"}}
		req := httptest.NewRequest(http.MethodPost, "/crear", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, post(token))
	assert.Equal(t, http.StatusForbidden, post("otro"))
	assert.Equal(t, http.StatusForbidden, post(""))
}

func TestRateLimit(t *testing.T) {
	lim := rate.NewMemoryLimiter(rate.Config{Limit: 1, Window: time.Hour})
	h := Chain(http.HandlerFunc(ok), WithRateLimit(RateLimitConfig{Limiter: lim, Route: "/login", Errors: plain}))

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/login", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}
	assert.Equal(t, http.StatusNoContent, req().Code)
	rec := req()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Chain(http.HandlerFunc(ok), WithSecurityHeaders(), WithNoStore()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)
	again, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	Chain(http.HandlerFunc(ok), again.Middleware()).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "204")))
}
