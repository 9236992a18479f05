package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/bootstrap"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/store"
	"github.com/feuc/declaraciones/internal/store/storetest"
)

func seedPerson(t *testing.T, conn store.Connection, sub, email string) *repository.Person {
	t.Helper()
	p, created, err := conn.Persons().Provision(context.Background(), repository.ProvisionInput{
		ExternalID: sub,
		Email:      email,
		Username:   email[:len(email)-len("@uc.cl")],
		Name:       sub,
	})
	require.NoError(t, err)
	require.True(t, created)
	return p
}

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()
	conn := storetest.Open(t)

	_, err := bootstrap.CreateOrganization(ctx, conn, repository.NewOrganization{Name: "  ", Acronym: "X"})
	assert.ErrorIs(t, err, bootstrap.ErrMissingName)

	o, err := bootstrap.CreateOrganization(ctx, conn, repository.NewOrganization{Name: " Centro de Alumnos de Medicina ", Acronym: "CAMed", Type: "Centro de Estudiantes"})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "Centro de Alumnos de Medicina", o.Name)

	got, err := conn.Organizations().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "CAMed", got.Acronym)
}

func TestPromoteRepresentative(t *testing.T) {
	ctx := context.Background()
	conn := storetest.Open(t)
	seedPerson(t, conn, "g1", "ana@uc.cl")

	_, err := bootstrap.PromoteRepresentative(ctx, conn, "nadie@uc.cl", repository.Representative{})
	assert.ErrorIs(t, err, bootstrap.ErrUnknownPerson)

	_, err = bootstrap.PromoteRepresentative(ctx, conn, "", repository.Representative{})
	assert.ErrorIs(t, err, bootstrap.ErrMissingEmail)

	for _, year := range []int{2018, 3000} {
		_, err = bootstrap.PromoteRepresentative(ctx, conn, "ana@uc.cl", repository.Representative{Year: year})
		assert.ErrorIs(t, err, repository.ErrInvalidInput, "year %d", year)
	}

	p, err := bootstrap.PromoteRepresentative(ctx, conn, " ANA@uc.cl ", repository.Representative{Type: "Consejera", Career: "Ingeniería", Year: 2024})
	require.NoError(t, err)
	assert.True(t, p.IsRepresentative)
	assert.Equal(t, "Consejera", p.Representative.Type)
	assert.Equal(t, 2024, p.Representative.Year)
}

func TestMakeAdmin(t *testing.T) {
	ctx := context.Background()
	conn := storetest.Open(t)
	ana := seedPerson(t, conn, "g1", "ana@uc.cl")

	a, err := bootstrap.CreateOrganization(ctx, conn, repository.NewOrganization{Name: "Org A", Acronym: "A"})
	require.NoError(t, err)
	b, err := bootstrap.CreateOrganization(ctx, conn, repository.NewOrganization{Name: "Org B", Acronym: "B"})
	require.NoError(t, err)

	_, err = bootstrap.MakeAdmin(ctx, conn, "ana@uc.cl", "no-existe")
	assert.ErrorIs(t, err, bootstrap.ErrUnknownOrg)

	p, err := bootstrap.MakeAdmin(ctx, conn, "ana@uc.cl", a.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, p.ID)
	assert.Equal(t, a.ID, p.MemberOf)
	assert.Equal(t, a.ID, p.AdminOf)

	// idempotente sobre la misma organización
	_, err = bootstrap.MakeAdmin(ctx, conn, "ana@uc.cl", a.ID)
	require.NoError(t, err)

	_, err = bootstrap.MakeAdmin(ctx, conn, "ana@uc.cl", b.ID)
	assert.ErrorIs(t, err, bootstrap.ErrOtherOrgMember)
}
