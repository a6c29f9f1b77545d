package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whittle/internal/services/photorec"
)

func newEngineCommand(cc *commandContext) *cobra.Command {
	engineCmd := &cobra.Command{
		Use:   "engine",
		Short: "Carving engine utilities",
	}
	engineCmd.AddCommand(newEngineCheckCommand(cc))
	return engineCmd
}

func newEngineCheckCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve the engine binary and show the options it will run with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}

			settings := photorec.SettingsFromConfig(cfg)
			if err := settings.Validate(); err != nil {
				return err
			}
			resolved, err := photorec.Locate(cfg.EngineCommand())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Engine:  %s\n", resolved)
			fmt.Fprintf(out, "Options: %s\n", settings.OptionsString())
			fmt.Fprintf(out, "Timeout: %ds\n", cfg.Engine.TimeoutSeconds)
			return nil
		},
	}
}
