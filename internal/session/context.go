package session

import (
	"context"

	"github.com/feuc/declaraciones/internal/auth/authz"
)

type principalKey struct{}

// WithPrincipal guarda el principal del request en el contexto.
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom retorna el principal del request, o el anónimo.
func PrincipalFrom(ctx context.Context) authz.Principal {
	if p, ok := ctx.Value(principalKey{}).(authz.Principal); ok {
		return p
	}
	return authz.Anonymous()
}
