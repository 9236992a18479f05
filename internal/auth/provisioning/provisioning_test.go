package provisioning_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/auth/provisioning"
	"github.com/feuc/declaraciones/internal/config"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/oauth/google"
	"github.com/feuc/declaraciones/internal/store/storetest"
)

func newService() *provisioning.Service {
	return provisioning.New(provisioning.Config{
		AllowedDomains: config.DefaultAllowedDomains,
		Superusers:     []string{"agucova@uc.cl"},
		BootstrapOrg:   repository.NewOrganization{Name: "Centro de Alumnos de Ingeniería", Acronym: "CAi", Type: "Centro de Estudiantes"},
	})
}

func TestSplitEmail(t *testing.T) {
	local, domain, err := provisioning.SplitEmail("Juan.Perez@UC.cl")
	require.NoError(t, err)
	assert.Equal(t, "juan.perez", local)
	assert.Equal(t, "uc.cl", domain)

	for _, bad := range []string{"", "sin-arroba", "@uc.cl", "juan@"} {
		_, _, err := provisioning.SplitEmail(bad)
		assert.ErrorIs(t, err, provisioning.ErrInvalidEmail, bad)
	}
}

func TestProvision_DomainAllowList(t *testing.T) {
	ctx := context.Background()
	persons := storetest.Open(t).Persons()
	s := newService()

	for _, email := range []string{"a@gmail.com", "b@uc.cl.evil.com", "c@estudiante.uc.cl", "d@ucl.cl", "e@fis.uc.cl"} {
		_, err := s.Provision(ctx, persons, google.VerifiedClaims{Subject: "s-" + email, Email: email})
		assert.ErrorIs(t, err, provisioning.ErrDomainNotAllowed, email)
	}
	for _, email := range []string{"a@uc.cl", "b@puc.cl", "c@mat.uc.cl", "d@ing.uc.cl", "e@ing.puc.cl", "f@mat.puc.cl"} {
		_, err := s.Provision(ctx, persons, google.VerifiedClaims{Subject: "s-" + email, Email: email})
		assert.NoError(t, err, email)
	}

	_, err := persons.GetByExternalID(ctx, "s-a@gmail.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProvision_PlainPerson(t *testing.T) {
	ctx := context.Background()
	persons := storetest.Open(t).Persons()

	p, err := newService().Provision(ctx, persons, google.VerifiedClaims{
		Subject: "g123", Email: "new.person@uc.cl", GivenName: "New", FamilyName: "Person", Name: "New Person",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.person", p.Username)
	assert.False(t, p.IsRepresentative)
	assert.False(t, p.IsSuperuser)
	assert.Empty(t, p.MemberOf)
	assert.True(t, p.IsActive)
	assert.True(t, p.IsAuthenticated)
}

func TestProvision_SuperuserBootstrap(t *testing.T) {
	ctx := context.Background()
	conn := storetest.Open(t)
	s := newService()

	claims := google.VerifiedClaims{Subject: "g-root", Email: "AguCova@uc.cl", Name: "Agustín"}
	p, err := s.Provision(ctx, conn.Persons(), claims)
	require.NoError(t, err)
	assert.True(t, p.IsSuperuser)
	assert.True(t, p.IsRepresentative)
	require.NotEmpty(t, p.MemberOf)
	assert.Equal(t, p.MemberOf, p.AdminOf)

	orgs, err := conn.Organizations().List(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "CAi", orgs[0].Acronym)
	assert.Equal(t, "Centro de Estudiantes", orgs[0].Type)

	again, err := s.Provision(ctx, conn.Persons(), claims)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	orgs, err = conn.Organizations().List(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestProvision_ConcurrentSameSubject(t *testing.T) {
	ctx := context.Background()
	conn := storetest.Open(t)
	s := newService()

	const n = 6
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Provision(ctx, conn.Persons(), google.VerifiedClaims{Subject: "agu", Email: "agucova@uc.cl"})
			if assert.NoError(t, err) {
				ids <- p.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)

	orgs, err := conn.Organizations().List(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 1, "una sola organización bootstrap")
}
