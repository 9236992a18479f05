// Command declaraciones levanta el portal de declaraciones y expone
// las tareas de operador (migraciones, organizaciones, roles).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/feuc/declaraciones/internal/config"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/store"
	_ "github.com/feuc/declaraciones/internal/store/adapters/pg"
	_ "github.com/feuc/declaraciones/internal/store/adapters/sqlite"
)

type cli struct {
	configPath string
	cfg        *config.Config
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	// .env es opcional
	_ = godotenv.Load()

	c := &cli{configPath: envOr("CONFIG_PATH", "config.yaml")}
	root := &cobra.Command{
		Use:           "declaraciones",
		Short:         "Portal de declaraciones de organizaciones estudiantiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "declaraciones"})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", c.configPath, "Ruta al YAML de configuración (env CONFIG_PATH)")

	root.AddCommand(c.serveCmd(), c.migrateCmd(), c.orgCmd(), c.personCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// open conecta al almacenamiento configurado; el caller cierra la conexión.
func (c *cli) open(ctx context.Context) (store.Connection, error) {
	return store.Open(ctx, store.AdapterConfig{
		Name:         c.cfg.Storage.Driver,
		DSN:          c.cfg.Storage.DSN,
		MaxOpenConns: c.cfg.Storage.MaxOpenConns,
		MaxIdleConns: c.cfg.Storage.MaxIdleConns,
	})
}

func (c *cli) migrate(ctx context.Context, conn store.Connection) error {
	res, err := conn.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Named("migrate").Info("migraciones",
		logger.Any("applied", res.Applied),
		logger.Int("skipped", len(res.Skipped)),
		logger.String("took", res.Duration.String()),
	)
	return nil
}
