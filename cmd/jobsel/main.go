// Package main is the entry point for the jobsel CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixml/jobsel/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobsel",
		Short: "Batch server job selection engine",
		Long: `jobsel keeps a table of batch jobs and their queues and answers
select and select-status queries over it, either from the command line or
through an HTTP API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(selectCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return config.AppConfig{}, err
	}
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
