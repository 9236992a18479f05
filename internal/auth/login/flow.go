// Package login orquesta el handshake: state firmado, canje con el
// proveedor, alta de la persona y sesión.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/feuc/declaraciones/internal/audit"
	"github.com/feuc/declaraciones/internal/auth/provisioning"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/metrics"
	"github.com/feuc/declaraciones/internal/oauth/google"
	"github.com/feuc/declaraciones/internal/observability/logger"
	tokens "github.com/feuc/declaraciones/internal/security/token"
)

// IdentityProvider es el cliente OAuth2 del proveedor.
type IdentityProvider interface {
	BeginLogin(ctx context.Context, returnBaseURL, state string) (string, error)
	CompleteLogin(ctx context.Context, code, redirectBaseURL string) (*google.VerifiedClaims, error)
}

// Provisioner convierte claims en una Person.
type Provisioner interface {
	Provision(ctx context.Context, persons repository.PersonRepository, claims google.VerifiedClaims) (*repository.Person, error)
}

// SessionEstablisher liga el cliente con una persona.
type SessionEstablisher interface {
	Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, personID string) error
}

// Config del flujo.
type Config struct {
	// BaseURL pública del portal; el login vive en BaseURL + "/login".
	BaseURL string
	// NonceCookie guarda el nonce que ata el state al navegador.
	NonceCookie  string
	SecureCookie bool
}

// Flow implementa /login y /login/callback.
type Flow struct {
	idp      IdentityProvider
	prov     Provisioner
	sessions SessionEstablisher
	signer   *StateSigner
	cfg      Config
}

func NewFlow(idp IdentityProvider, prov Provisioner, sessions SessionEstablisher, signer *StateSigner, cfg Config) *Flow {
	if cfg.NonceCookie == "" {
		cfg.NonceCookie = "declaraciones_login"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Flow{idp: idp, prov: prov, sessions: sessions, signer: signer, cfg: cfg}
}

func (f *Flow) loginBase() string { return f.cfg.BaseURL + "/login" }

func (f *Flow) nonceCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     f.cfg.NonceCookie,
		Value:    value,
		Path:     "/login",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   f.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// Begin emite el nonce y retorna la URL de autorización del proveedor.
func (f *Flow) Begin(ctx context.Context, w http.ResponseWriter) (string, error) {
	nonce, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return "", fmt.Errorf("login: nonce: %w", err)
	}
	state, err := f.signer.Sign(nonce)
	if err != nil {
		return "", fmt.Errorf("login: sign state: %w", err)
	}
	redirect, err := f.idp.BeginLogin(ctx, f.loginBase(), state)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, f.nonceCookie(nonce, int((10*time.Minute).Seconds())))
	return redirect, nil
}

// Complete valida el callback, provisiona la persona y establece la sesión.
// Nada se persiste si el proveedor falla.
func (f *Flow) Complete(ctx context.Context, w http.ResponseWriter, r *http.Request, persons repository.PersonRepository) (*repository.Person, error) {
	q := r.URL.Query()

	// El nonce es de un solo uso, pase lo que pase.
	http.SetCookie(w, f.nonceCookie("", -1))

	if e := q.Get("error"); e != "" {
		return nil, &google.ProviderError{Op: "authorize", Err: errors.New(e)}
	}
	st, err := f.signer.Parse(q.Get("state"))
	if err != nil {
		return nil, &google.ProviderError{Op: "state", Err: err}
	}
	c, err := r.Cookie(f.cfg.NonceCookie)
	if err != nil || !tokens.Equal(c.Value, st.Nonce) {
		return nil, &google.ProviderError{Op: "state", Err: errors.New("nonce mismatch")}
	}

	claims, err := f.idp.CompleteLogin(ctx, q.Get("code"), f.loginBase())
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return nil, err
	}
	p, err := f.prov.Provision(ctx, persons, *claims)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return nil, err
	}
	if err := f.sessions.Establish(ctx, w, r, p.ID); err != nil {
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	audit.Log(ctx, audit.EventLogin, logger.PersonID(p.ID), logger.Email(p.Email))
	return p, nil
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, google.ErrUnverifiedEmail):
		return "unverified"
	case errors.Is(err, provisioning.ErrDomainNotAllowed), errors.Is(err, provisioning.ErrInvalidEmail):
		return "domain_rejected"
	case errors.Is(err, google.ErrIdentityProvider):
		return "provider_error"
	default:
		return "error"
	}
}
