package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"whittle/internal/logging"
	"whittle/internal/workspace"
)

func newCleanCommand(cc *commandContext) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale job directories from the work roots",
		Long: "Clean removes job output and temp directories older than the stale\n" +
			"window. Jobs that crashed or were killed leave directories behind;\n" +
			"this reclaims them without touching anything recent.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			maxAge := time.Duration(hours) * time.Hour
			if hours <= 0 {
				maxAge = time.Duration(cfg.Carving.StaleAfterHours) * time.Hour
			}

			out := cmd.OutOrStdout()
			removed := 0
			for _, root := range []string{cfg.OutputRoot(), cfg.TempRoot()} {
				result := workspace.CleanStale(root, maxAge, logger)
				removed += len(result.Removed)
				for _, cleanupErr := range result.Errors {
					fmt.Fprintf(out, "failed to remove %s: %v\n", cleanupErr.Path, cleanupErr.Error)
				}
			}
			fmt.Fprintf(out, "Removed %d stale job directories (older than %s)\n", removed, maxAge)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "older-than", 0, "Override the stale window in hours")
	return cmd
}
