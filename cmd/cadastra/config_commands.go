package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadastra/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and bootstrap configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "data_dir             = %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log_dir              = %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "claim_retry_attempts = %d\n", cfg.Engine.ClaimRetryAttempts)
			fmt.Fprintf(out, "log_format           = %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log_level            = %s\n", cfg.Logging.Level)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})

	return configCmd
}
