// Package google implementa el cliente del proveedor de identidad: flujo
// authorization code de OAuth2 con metadata OpenID descubierta en cada login.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultDiscoveryURL es el documento de descubrimiento de Google.
const DefaultDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// Scopes pedidos en la autorización.
var Scopes = []string{"openid", "email", "profile"}

var (
	// ErrIdentityProvider agrupa fallas de red o protocolo con el proveedor.
	ErrIdentityProvider = errors.New("identity provider error")

	// ErrUnverifiedEmail indica que el perfil no trae un email verificado.
	ErrUnverifiedEmail = errors.New("email no disponible o no verificado")
)

// ProviderError describe en qué paso falló la conversación con el proveedor.
type ProviderError struct {
	Op  string // discovery | token | userinfo
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrIdentityProvider).
func (e *ProviderError) Is(target error) bool { return target == ErrIdentityProvider }

func providerErr(op string, err error) error {
	return &ProviderError{Op: op, Err: err}
}

// VerifiedClaims son los únicos datos del proveedor en los que se confía.
type VerifiedClaims struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Name       string
}

// Config del cliente.
type Config struct {
	ClientID     string
	ClientSecret string
	DiscoveryURL string
	// Timeout acota cada llamada HTTP al proveedor. Default 10s.
	Timeout time.Duration
	// HTTPClient opcional; si es nil se crea uno con Timeout.
	HTTPClient *http.Client
}

type discoveryDoc struct {
	Issuer           string `json:"issuer"`
	AuthEndpoint     string `json:"authorization_endpoint"`
	TokenEndpoint    string `json:"token_endpoint"`
	UserinfoEndpoint string `json:"userinfo_endpoint"`
}

type userinfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // bool, a veces "true"
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (u userinfo) emailVerified() bool {
	switch v := u.EmailVerified.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Client habla con el proveedor. No guarda metadata entre llamadas.
type Client struct {
	cfg  Config
	http *http.Client
	sf   singleflight.Group
}

// New crea el cliente.
func New(cfg Config) *Client {
	if cfg.DiscoveryURL == "" {
		cfg.DiscoveryURL = DefaultDiscoveryURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc}
}

// discovery descarga el documento en cada llamada. Llamadas concurrentes
// comparten la misma descarga en vuelo; el resultado no se retiene.
// La descarga compartida no depende del ctx de ningún caller: cada uno
// espera hasta que su propio ctx termina.
func (c *Client) discovery(ctx context.Context) (*discoveryDoc, error) {
	ch := c.sf.DoChan(c.cfg.DiscoveryURL, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		var dd discoveryDoc
		if err := c.getJSON(fctx, c.cfg.DiscoveryURL, nil, &dd); err != nil {
			return nil, err
		}
		if dd.AuthEndpoint == "" || dd.TokenEndpoint == "" || dd.UserinfoEndpoint == "" {
			return nil, errors.New("incomplete discovery document")
		}
		return &dd, nil
	})

	select {
	case <-ctx.Done():
		return nil, providerErr("discovery", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, providerErr("discovery", res.Err)
		}
		return res.Val.(*discoveryDoc), nil
	}
}

func (c *Client) oauthConfig(dd *discoveryDoc, redirectBaseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  dd.AuthEndpoint,
			TokenURL: dd.TokenEndpoint,
		},
		RedirectURL: CallbackURL(redirectBaseURL),
		Scopes:      Scopes,
	}
}

// CallbackURL es el destino de retorno para una URL base dada.
func CallbackURL(base string) string {
	return strings.TrimRight(base, "/") + "/callback"
}

// BeginLogin construye la URL de autorización con callback returnBaseURL + "/callback".
// state viaja intacto hasta el callback.
func (c *Client) BeginLogin(ctx context.Context, returnBaseURL, state string) (string, error) {
	dd, err := c.discovery(ctx)
	if err != nil {
		return "", err
	}
	return c.oauthConfig(dd, returnBaseURL).AuthCodeURL(state), nil
}

// CompleteLogin canjea code por tokens y lee el perfil del usuario.
// redirectBaseURL debe ser el mismo usado en BeginLogin.
func (c *Client) CompleteLogin(ctx context.Context, code, redirectBaseURL string) (*VerifiedClaims, error) {
	if strings.TrimSpace(code) == "" {
		return nil, providerErr("token", errors.New("missing authorization code"))
	}
	dd, err := c.discovery(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := c.oauthConfig(dd, redirectBaseURL).Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		return nil, providerErr("token", err)
	}

	var ui userinfo
	if err := c.getJSON(ctx, dd.UserinfoEndpoint, tok, &ui); err != nil {
		return nil, providerErr("userinfo", err)
	}
	if ui.Sub == "" {
		return nil, providerErr("userinfo", errors.New("missing sub"))
	}
	if ui.Email == "" || !ui.emailVerified() {
		return nil, ErrUnverifiedEmail
	}
	return &VerifiedClaims{
		Subject:    ui.Sub,
		Email:      strings.ToLower(strings.TrimSpace(ui.Email)),
		GivenName:  ui.GivenName,
		FamilyName: ui.FamilyName,
		Name:       ui.Name,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, tok *oauth2.Token, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if tok != nil {
		tok.SetAuthHeader(req)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}
