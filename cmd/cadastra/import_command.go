package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"cadastra/internal/fileutil"
	"cadastra/internal/importer"
	"cadastra/internal/textutil"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load work-unit definitions from a CSV file",
		Long: "Load work-unit definitions from a CSV file with batch and block\n" +
			"columns. The region applies to the whole file. Re-running an import\n" +
			"skips existing blocks instead of duplicating them.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				// One import at a time; a second invocation waits on the lock
				// rather than interleaving inserts.
				lock := flock.New(filepath.Join(e.cfg.Paths.DataDir, "import.lock"))
				if err := lock.Lock(); err != nil {
					return fmt.Errorf("acquire import lock: %w", err)
				}
				defer func() { _ = lock.Unlock() }()

				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer file.Close()

				result, err := importer.New(e.store, e.logger).ImportCSV(cmd.Context(), region, file)
				if err != nil {
					return err
				}

				// Archive the source file so the provenance of every import
				// survives next to the database.
				archive := filepath.Join(e.cfg.Paths.DataDir, "imports",
					fmt.Sprintf("%s-%s.csv", time.Now().UTC().Format("20060102T150405Z"), result.Region))
				if err := fileutil.CopyVerified(args[0], archive); err != nil {
					return fmt.Errorf("archive import file: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Region %s: %d inserted, %d skipped\n",
					result.Region, result.Inserted, result.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region the imported blocks belong to")
	_ = cmd.MarkFlagRequired("region")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		region = textutil.NormalizeCode(region)
	}

	return cmd
}
