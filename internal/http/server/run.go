package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feuc/declaraciones/internal/observability/logger"
)

// Serve atiende hasta que ctx se cancela y luego hace un shutdown ordenado.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config.Server
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	log := logger.Named("server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("escuchando", logger.String("addr", cfg.Addr), logger.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("apagando")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
