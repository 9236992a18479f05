package render

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/auth/authz"
	"github.com/feuc/declaraciones/internal/domain/repository"
)

func TestNew_ParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, name := range []string{PageHome, PageStatements, PageRepresentatives, PageUpload, PageOrganization, PageMembers, PageSettings, "400", "403", "404", "429", "500"} {
		assert.True(t, r.Has(name), name)
	}
	assert.False(t, r.Has("base"))
}

func TestHTML_NavFollowsPrincipal(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.HTML(rec, http.StatusForbidden, "403", Page{User: authz.Anonymous()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `href="/login"`)
	assert.NotContains(t, rec.Body.String(), `href="/crear"`)

	admin := authz.Principal{PersonID: "p", Username: "ana", IsAuthenticated: true, IsRepresentative: true, MemberOf: "o", AdminOf: "o"}
	rec = httptest.NewRecorder()
	require.NoError(t, r.HTML(rec, http.StatusOK, PageHome, Page{User: admin}))
	body := rec.Body.String()
	assert.Contains(t, body, `href="/crear"`)
	assert.Contains(t, body, `href="/ajustes"`)
	assert.Contains(t, body, `href="/logout"`)
}

func TestHTML_EscapesData(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.HTML(rec, http.StatusOK, PageStatements, Page{Data: []repository.Statement{
		{Title: "<script>x</script>", OrgAcronym: "CAi", DateAdded: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
	}})
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;x&lt;/script&gt;")
	assert.Contains(t, rec.Body.String(), "02-05-2024")
}

func TestHTML_UnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, r.HTML(rec, http.StatusOK, "nope", Page{}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
