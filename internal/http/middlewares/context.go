package middlewares

import "context"

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxCSRFKey      ctxKey = "csrf_token"
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// GetRequestID retorna el request id del contexto, o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestIDKey).(string)
	return v
}

func setCSRFToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, ctxCSRFKey, tok)
}

// CSRFToken retorna el token que los formularios deben reenviar.
func CSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(ctxCSRFKey).(string)
	return v
}
