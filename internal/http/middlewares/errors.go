package middlewares

import "net/http"

// ErrorWriter renderiza la página de error de err.
type ErrorWriter interface {
	Write(w http.ResponseWriter, r *http.Request, err error)
}
