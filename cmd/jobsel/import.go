package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/infrastructure/fixture"
	"github.com/helixml/jobsel/internal/log"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load queues and jobs from a YAML fixture",
		Long: `Load queues and jobs from a YAML fixture into the stored job table.
Queues are added first. Jobs with an identifier already stored are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fixture.LoadFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDataDir(); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			slogger := log.Configure(cfg).Slog()

			client, err := jobsel.New(clientOptions(cfg, slogger)...)
			if err != nil {
				return fmt.Errorf("create jobsel client: %w", err)
			}
			defer func() { _ = client.Close() }()

			if err := client.Import(cmd.Context(), f); err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d queues and %d jobs\n", len(f.Queues), len(f.Jobs))
			return nil
		},
	}
}
