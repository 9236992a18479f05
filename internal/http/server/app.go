// Package server arma el portal a partir de la configuración y maneja el
// ciclo de vida del http.Server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"

	"github.com/feuc/declaraciones/internal/auth/login"
	"github.com/feuc/declaraciones/internal/auth/provisioning"
	"github.com/feuc/declaraciones/internal/cache"
	"github.com/feuc/declaraciones/internal/config"
	"github.com/feuc/declaraciones/internal/domain/repository"
	authctrl "github.com/feuc/declaraciones/internal/http/controllers/auth"
	"github.com/feuc/declaraciones/internal/http/controllers/health"
	orgctrl "github.com/feuc/declaraciones/internal/http/controllers/org"
	"github.com/feuc/declaraciones/internal/http/controllers/public"
	"github.com/feuc/declaraciones/internal/http/controllers/publish"
	httperrors "github.com/feuc/declaraciones/internal/http/errors"
	mw "github.com/feuc/declaraciones/internal/http/middlewares"
	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/membership"
	"github.com/feuc/declaraciones/internal/metrics"
	"github.com/feuc/declaraciones/internal/oauth/google"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/rate"
	"github.com/feuc/declaraciones/internal/session"
	"github.com/feuc/declaraciones/internal/statements"
	"github.com/feuc/declaraciones/internal/store"
)

// App es el portal armado.
type App struct {
	Config   *config.Config
	Store    store.Connection
	Cache    cache.Client
	Handler  http.Handler
	Registry *prometheus.Registry
}

// Options permite a los tests inyectar dependencias ya abiertas.
type Options struct {
	Store      store.Connection
	Cache      cache.Client
	HTTPClient *http.Client
}

// Build abre store y cache (si no vienen en opts) y arma el handler.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server: config: %w", err)
	}
	log := logger.Named("server")
	app := &App{Config: cfg, Store: opts.Store, Cache: opts.Cache, Registry: prometheus.NewRegistry()}

	if app.Store == nil {
		conn, err := store.Open(ctx, store.AdapterConfig{
			Name:         cfg.Storage.Driver,
			DSN:          cfg.Storage.DSN,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		app.Store = conn
	}
	if app.Cache == nil {
		c, err := cache.New(ctx, cache.Config{
			Kind:     cfg.Cache.Kind,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Cache = c
	}

	h, err := app.handler(cfg, opts)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Handler = h
	log.Info("portal armado",
		logger.String("storage", app.Store.Name()),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("metrics", cfg.Server.Metrics),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	return app, nil
}

func (a *App) handler(cfg *config.Config, opts Options) (http.Handler, error) {
	pages, err := render.New()
	if err != nil {
		return nil, err
	}
	errs := httperrors.NewWriter(pages)

	sessions := session.NewManager(a.Cache, session.Config{
		CookieName: cfg.Session.CookieName,
		Domain:     cfg.Session.Domain,
		SameSite:   session.ParseSameSite(cfg.Session.SameSite),
		Secure:     cfg.Session.Secure,
		TTL:        cfg.Session.TTL,
	})
	idp := google.New(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		DiscoveryURL: cfg.Google.DiscoveryURL,
		Timeout:      cfg.Google.Timeout,
		HTTPClient:   opts.HTTPClient,
	})
	prov := provisioning.New(provisioning.Config{
		AllowedDomains: cfg.Auth.AllowedDomains,
		Superusers:     cfg.Auth.Superusers,
		BootstrapOrg: repository.NewOrganization{
			Name:    cfg.Auth.BootstrapOrg.Name,
			Acronym: cfg.Auth.BootstrapOrg.Acronym,
			Type:    cfg.Auth.BootstrapOrg.Type,
		},
	})
	flow := login.NewFlow(idp, prov, sessions, login.NewStateSigner(cfg.Session.Secret, 0), login.Config{
		BaseURL:      cfg.Server.BaseURL,
		SecureCookie: cfg.Session.Secure,
	})

	st := statements.New()
	deps := RouterDeps{
		Store:        a.Store,
		Sessions:     sessions,
		Errors:       errs,
		Public:       public.NewControllers(pages, errs, st),
		Org:          orgctrl.NewControllers(pages, errs, st, membership.New()),
		Publish:      publish.NewControllers(pages, errs, st),
		Auth:         authctrl.NewControllers(flow, sessions, errs),
		Health:       health.NewControllers(map[string]health.Pinger{"store": a.Store, "cache": a.Cache}),
		SecureCookie: cfg.Session.Secure,
	}

	if cfg.Rate.Enabled {
		var client *rdb.Client
		if rc, ok := a.Cache.(*cache.RedisClient); ok {
			client = rc.Redis()
		}
		deps.LoginLimiter = rate.New(rate.Config{Limit: cfg.Rate.Login.Limit, Window: cfg.Rate.Login.Window}, client, cfg.Cache.Redis.Prefix+"rl:")
	}

	if cfg.Server.Metrics {
		if err := a.registerMetrics(); err != nil {
			return nil, err
		}
		hm, err := mw.NewHTTPMetrics(a.Registry)
		if err != nil {
			return nil, err
		}
		deps.HTTPMetrics = hm
		deps.Metrics = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	}

	return NewRouter(deps), nil
}

func (a *App) registerMetrics() error {
	reg := a.Registry
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}
	if s, ok := a.Store.(interface{ SQL() *sql.DB }); ok {
		if err := reg.Register(collectors.NewDBStatsCollector(s.SQL(), a.Store.Name())); err != nil {
			return err
		}
	}
	return metrics.Register(reg)
}

// Close libera store y cache.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
