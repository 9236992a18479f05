package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del portal. Se carga desde YAML y luego
// las variables de entorno pisan lo que venga del archivo.
type Config struct {
	App struct {
		// development | production
		Env string `yaml:"env" env:"APP_ENV"`
	} `yaml:"app"`

	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Cache   Cache   `yaml:"cache"`
	Session Session `yaml:"session"`
	Auth    Auth    `yaml:"auth"`
	Google  Google  `yaml:"google"`
	Rate    Rate    `yaml:"rate"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

type Server struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR"`
	// BaseURL es la URL pública (sin slash final); el callback OAuth es BaseURL + "/login/callback".
	BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	Metrics         bool          `yaml:"metrics" env:"METRICS_ENABLED"`
}

type Storage struct {
	// postgres | sqlite
	Driver       string `yaml:"driver" env:"STORAGE_DRIVER"`
	DSN          string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"STORAGE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"STORAGE_MAX_IDLE_CONNS"`
}

type Cache struct {
	// memory | redis
	Kind  string `yaml:"kind" env:"CACHE_KIND"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
	} `yaml:"redis"`
}

type Session struct {
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
	Domain     string        `yaml:"domain" env:"SESSION_DOMAIN"`
	SameSite   string        `yaml:"same_site" env:"SESSION_SAMESITE"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL"`
	// Secret firma el parámetro state del login.
	Secret string `yaml:"secret" env:"SESSION_SECRET"`
}

type Auth struct {
	AllowedDomains []string `yaml:"allowed_domains" env:"ALLOWED_DOMAINS" envSeparator:","`
	Superusers     []string `yaml:"superusers" env:"SUPERUSERS" envSeparator:","`
	BootstrapOrg   struct {
		Name    string `yaml:"name" env:"BOOTSTRAP_ORG_NAME"`
		Acronym string `yaml:"acronym" env:"BOOTSTRAP_ORG_ACRONYM"`
		Type    string `yaml:"type" env:"BOOTSTRAP_ORG_TYPE"`
	} `yaml:"bootstrap_org"`
}

type Google struct {
	ClientID     string        `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	DiscoveryURL string        `yaml:"discovery_url" env:"GOOGLE_DISCOVERY_URL"`
	Timeout      time.Duration `yaml:"timeout" env:"GOOGLE_TIMEOUT"`
}

type Rate struct {
	Enabled bool `yaml:"enabled" env:"RATE_ENABLED"`
	Login   struct {
		Limit  int           `yaml:"limit" env:"RATE_LOGIN_LIMIT"`
		Window time.Duration `yaml:"window" env:"RATE_LOGIN_WINDOW"`
	} `yaml:"login"`
}

// DefaultAllowedDomains son los dominios institucionales aceptados por defecto.
var DefaultAllowedDomains = []string{"uc.cl", "puc.cl", "mat.uc.cl", "ing.uc.cl", "ing.puc.cl", "mat.puc.cl"}

// Default retorna una configuración con todos los defaults aplicados.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load lee el YAML en path (si existe), aplica defaults y overrides de entorno.
// Un archivo inexistente no es error: se puede configurar solo por entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" && c.Storage.Driver == "sqlite" {
		c.Storage.DSN = "declaraciones.db"
	}
	if c.Storage.MaxOpenConns == 0 {
		c.Storage.MaxOpenConns = 10
	}
	if c.Storage.MaxIdleConns == 0 {
		c.Storage.MaxIdleConns = 2
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "declaraciones:"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "declaraciones_session"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if len(c.Auth.AllowedDomains) == 0 {
		c.Auth.AllowedDomains = append([]string(nil), DefaultAllowedDomains...)
	}
	if c.Auth.BootstrapOrg.Name == "" {
		c.Auth.BootstrapOrg.Name = "Centro de Alumnos de Ingeniería"
	}
	if c.Auth.BootstrapOrg.Acronym == "" {
		c.Auth.BootstrapOrg.Acronym = "CAi"
	}
	if c.Auth.BootstrapOrg.Type == "" {
		c.Auth.BootstrapOrg.Type = "Centro de Estudiantes"
	}
	if c.Google.DiscoveryURL == "" {
		c.Google.DiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"
	}
	if c.Google.Timeout == 0 {
		c.Google.Timeout = 10 * time.Second
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 20
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = time.Minute
	}
}

// IsProduction indica si App.Env es producción.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.App.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Validate revisa lo mínimo para levantar el servidor HTTP.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("session.secret (SESSION_SECRET) debe tener al menos 32 bytes"))
	}
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("google.client_id y google.client_secret son obligatorios"))
	}
	switch c.Storage.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("storage.driver desconocido: %q", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn (DATABASE_URL) es obligatorio"))
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr es obligatorio con cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind desconocido: %q", c.Cache.Kind))
	}
	return errors.Join(errs...)
}
