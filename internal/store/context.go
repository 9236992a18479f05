package store

import "context"

type scopeKey struct{}

// WithScope guarda el DataAccess del request en el contexto.
func WithScope(ctx context.Context, da DataAccess) context.Context {
	return context.WithValue(ctx, scopeKey{}, da)
}

// From retorna el DataAccess del request, si hay uno.
func From(ctx context.Context) (DataAccess, bool) {
	da, ok := ctx.Value(scopeKey{}).(DataAccess)
	return da, ok && da != nil
}
