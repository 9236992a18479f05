// Package session liga el request con una Person mediante un id opaco en
// cookie; el payload vive en cache bajo "sid:" + sha256(id).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/feuc/declaraciones/internal/auth/authz"
	"github.com/feuc/declaraciones/internal/cache"
	"github.com/feuc/declaraciones/internal/domain/repository"
	"github.com/feuc/declaraciones/internal/observability/logger"
	tokens "github.com/feuc/declaraciones/internal/security/token"
)

// Config de la cookie de sesión.
type Config struct {
	CookieName string
	Domain     string
	SameSite   http.SameSite
	Secure     bool
	TTL        time.Duration
}

// ParseSameSite convierte "Strict" | "Lax" | "None" (default Lax).
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type payload struct {
	PersonID  string    `json:"person_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager implementa establish/current/terminate.
type Manager struct {
	cache cache.Client
	cfg   Config
	now   func() time.Time
}

func NewManager(c cache.Client, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "declaraciones_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return &Manager{cache: c, cfg: cfg, now: time.Now}
}

func cacheKey(sid string) string {
	return "sid:" + tokens.SHA256Base64URL(sid)
}

func (m *Manager) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.Domain,
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: m.cfg.SameSite,
	}
}

func (m *Manager) sessionID(r *http.Request) string {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Establish liga el cliente a personID. Si ya había una sesión se descarta
// y se emite un id nuevo.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, personID string) error {
	if personID == "" {
		return errors.New("session: empty person id")
	}
	if old := m.sessionID(r); old != "" {
		_ = m.cache.Delete(ctx, cacheKey(old))
	}

	sid, err := tokens.GenerateOpaqueToken(tokens.SessionIDBytes)
	if err != nil {
		return fmt.Errorf("session: generate id: %w", err)
	}
	now := m.now().UTC()
	b, err := json.Marshal(payload{PersonID: personID, CreatedAt: now, ExpiresAt: now.Add(m.cfg.TTL)})
	if err != nil {
		return err
	}
	if err := m.cache.Set(ctx, cacheKey(sid), string(b), m.cfg.TTL); err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	http.SetCookie(w, m.cookie(sid, int(m.cfg.TTL.Seconds()), now.Add(m.cfg.TTL)))
	logger.From(ctx).Debug("sesión establecida", logger.PersonID(personID))
	return nil
}

// Lookup retorna el personID ligado al request, o "" si no hay sesión vigente.
func (m *Manager) Lookup(ctx context.Context, r *http.Request) (string, error) {
	sid := m.sessionID(r)
	if sid == "" {
		return "", nil
	}
	raw, err := m.cache.Get(ctx, cacheKey(sid))
	if err != nil {
		if cache.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("session: load: %w", err)
	}
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return "", nil
	}
	if !p.ExpiresAt.IsZero() && m.now().After(p.ExpiresAt) {
		return "", nil
	}
	return p.PersonID, nil
}

// Current resuelve el principal del request. La persona se relee del store
// en cada request para que cambios de membresía apliquen de inmediato.
func (m *Manager) Current(ctx context.Context, r *http.Request, persons repository.PersonRepository) (authz.Principal, error) {
	personID, err := m.Lookup(ctx, r)
	if err != nil || personID == "" {
		return authz.Anonymous(), err
	}
	p, err := persons.GetByID(ctx, personID)
	if err != nil {
		if repository.IsNotFound(err) {
			return authz.Anonymous(), nil
		}
		return authz.Anonymous(), err
	}
	return authz.FromPerson(p), nil
}

// Terminate borra la sesión del cache y expira la cookie.
func (m *Manager) Terminate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if sid := m.sessionID(r); sid != "" {
		err = m.cache.Delete(ctx, cacheKey(sid))
		if err != nil {
			logger.From(ctx).Warn("no se pudo borrar la sesión", logger.Err(err))
		}
	}
	http.SetCookie(w, m.cookie("", -1, time.Unix(0, 0)))
	return err
}
