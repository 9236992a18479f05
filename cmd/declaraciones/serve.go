package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feuc/declaraciones/internal/http/server"
)

func (c *cli) serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.cfg.Validate(); err != nil {
				return err
			}
			conn, err := c.open(ctx)
			if err != nil {
				return err
			}
			if !skipMigrate {
				if err := c.migrate(ctx, conn); err != nil {
					_ = conn.Close()
					return err
				}
			}

			app, err := server.Build(ctx, c.cfg, server.Options{Store: conn})
			if err != nil {
				_ = conn.Close()
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "No aplicar migraciones al arrancar")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			return c.migrate(cmd.Context(), conn)
		},
	}
}
