package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adfharrison1/go-filestore/pkg/config"
	"github.com/adfharrison1/go-filestore/pkg/logger"
	"github.com/adfharrison1/go-filestore/pkg/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "filestore",
		Short: "go-filestore is an embedded document store with an HTTP API",
		Long: `go-filestore keeps named databases of JSON document collections in memory
and persists each database as a compressed snapshot (file backend) or as a
row of a SQLite file (sqlite backend).

Without an autosave interval every write is saved immediately unless
--save-on-write=false, in which case data is saved on graceful shutdown.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Example: `  filestore serve                          # Start with defaults
  filestore serve --port 9090 --backend sqlite --path data/store.sqlite
  filestore serve --autosave 5m            # Save dirty databases every 5 minutes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return serveHTTP(cfg)
		},
	}

	flags := serve.Flags()
	flags.String("port", "8080", "server port")
	flags.String("path", "workspace", "data directory (file) or database file (sqlite)")
	flags.String("backend", "file", "storage backend: file, sqlite or memory")
	flags.Duration("autosave", 0, "background save interval (e.g. 5m, 30s); 0 saves on every write")
	flags.Bool("save-on-write", true, "save after every write when autosave is disabled")
	flags.Bool("compress", true, "lz4 compress snapshots")
	flags.String("log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")
	flags.String("log-format", "text", "log format: text or json")

	bindings := map[string]string{
		"server.port":               "port",
		"database.path":             "path",
		"database.backend":          "backend",
		"database.autosaveInterval": "autosave",
		"database.saveOnWrite":      "save-on-write",
		"database.compress":         "compress",
		"log.level":                 "log-level",
		"log.format":                "log-format",
	}
	for key, flag := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(serve, newLoadCmd())
	return root
}

func serveHTTP(cfg *config.Config) error {
	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	backend, err := server.NewBackend(cfg.Database, log)
	if err != nil {
		return err
	}
	if cfg.Database.AutosaveInterval > 0 {
		log.Info("background save enabled", "interval", cfg.Database.AutosaveInterval)
	} else if !cfg.Database.SaveOnWrite && cfg.Database.Backend != "memory" {
		log.Warn("background save disabled - data only saved on graceful shutdown")
	}

	srv := server.NewServer(cfg, backend, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
		log.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
