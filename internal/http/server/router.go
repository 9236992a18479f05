package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feuc/declaraciones/internal/auth/authz"
	authctrl "github.com/feuc/declaraciones/internal/http/controllers/auth"
	"github.com/feuc/declaraciones/internal/http/controllers/health"
	orgctrl "github.com/feuc/declaraciones/internal/http/controllers/org"
	"github.com/feuc/declaraciones/internal/http/controllers/public"
	"github.com/feuc/declaraciones/internal/http/controllers/publish"
	httperrors "github.com/feuc/declaraciones/internal/http/errors"
	mw "github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/rate"
	"github.com/feuc/declaraciones/internal/store"
)

// RouterDeps son las dependencias del router.
type RouterDeps struct {
	Store    store.Connection
	Sessions mw.PrincipalResolver
	Errors   *httperrors.Writer

	Public  *public.Controllers
	Org     *orgctrl.Controllers
	Publish *publish.Controllers
	Auth    *authctrl.Controllers
	Health  *health.Controllers

	// Opcionales
	HTTPMetrics  *mw.HTTPMetrics
	Metrics      http.Handler
	LoginLimiter rate.Limiter
	SecureCookie bool
}

// NewRouter arma las rutas. Toda página corre dentro de un scope del store
// y con el principal resuelto; las rutas protegidas pasan por Require.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	base := []func(http.Handler) http.Handler{mw.WithRequestID(), mw.WithLogging()}
	if d.HTTPMetrics != nil {
		base = append(base, d.HTTPMetrics.Middleware())
	}
	base = append(base, mw.WithRecover(d.Errors), mw.WithSecurityHeaders())
	r.Use(base...)

	pages := []func(http.Handler) http.Handler{
		mw.WithStoreScope(d.Store, d.Errors),
		mw.WithPrincipal(d.Sessions, d.Errors),
		// la página 500 de un panic lleva el nav del principal
		mw.WithRecover(d.Errors),
		mw.WithCSRF(mw.CSRFConfig{Secure: d.SecureCookie, Errors: d.Errors}),
	}
	notFound := chi.Chain(pages...).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.Errors.Status(w, r, http.StatusNotFound)
	})
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(notFound.ServeHTTP)

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	require := func(a authz.Action) func(http.Handler) http.Handler {
		return mw.Require(a, d.Errors)
	}
	loginRate := mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: d.LoginLimiter,
		KeyFunc: mw.IPPathRateKey,
		Route:   "/login",
		Errors:  d.Errors,
	})

	r.Group(func(r chi.Router) {
		r.Use(pages...)

		r.Get("/", d.Public.Home)
		r.Get("/declaraciones", d.Public.Statements)
		r.Get("/representantes", d.Public.Representatives)

		r.Group(func(r chi.Router) {
			r.Use(require(authz.CreateStatement), mw.WithNoStore())
			r.Get("/crear", d.Publish.Form)
			r.Post("/crear", d.Publish.Create)
		})

		r.Group(func(r chi.Router) {
			r.Use(require(authz.ViewOrganization), mw.WithNoStore())
			r.Get("/org", d.Org.Organization)
			r.Get("/miembros", d.Org.Members)
		})

		r.With(require(authz.ManageMembership), mw.WithNoStore()).Get("/ajustes", d.Org.Settings)

		r.Group(func(r chi.Router) {
			r.Use(mw.WithNoStore())
			r.With(loginRate).Get("/login", d.Auth.Login)
			r.With(loginRate).Get("/login/callback", d.Auth.Callback)
			r.With(require(authz.Logout)).Get("/logout", d.Auth.Logout)
		})
	})

	return r
}
