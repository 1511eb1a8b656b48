package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/infrastructure/api"
	"github.com/helixml/jobsel/infrastructure/metrics"
	"github.com/helixml/jobsel/internal/config"
	"github.com/helixml/jobsel/internal/log"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                    Server host to bind to (default: 0.0.0.0)
  PORT                    Server port to listen on (default: 8080)
  DATA_DIR                Data directory (default: ~/.jobsel)
  DB_URL                  Database URL (default: sqlite:///{data_dir}/jobsel.db)
  LOG_LEVEL               Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT              Log format: pretty, text, json (default: pretty)
  API_KEYS                Comma-separated list of valid API keys
  QUERY_OTHERS            Let every requester see every job (default: false)
  MAX_RESULTS             Cap on jobs returned by one query (default: 100000)
  DEFAULT_REQUESTER_PERM  Role of HTTP requesters: user, operator, manager (default: user)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), applyServeOverrides(cfg, host, port))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

// applyServeOverrides applies command line flags over the loaded config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption
	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}
	return cfg.Apply(opts...)
}

func runServe(ctx context.Context, cfg config.AppConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	slogger := log.Configure(cfg).Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(ctx, slog.LevelInfo, "starting jobsel", attrs...)

	recorder := metrics.NewRecorder()
	opts := append(clientOptions(cfg, slogger), jobsel.WithRecorder(recorder))
	client, err := jobsel.New(opts...)
	if err != nil {
		return fmt.Errorf("create jobsel client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close jobsel client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, cfg.APIKeys(),
		api.WithMetrics(recorder),
		api.WithRequesterPerm(cfg.RequesterPerm()),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.ListenAndServe(cfg.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		slogger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
