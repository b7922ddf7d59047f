package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waabox/councildeck/internal/config"
)

func newConfigCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the councildeck config file",
	}
	cmd.AddCommand(newConfigInitCommand(rt), newConfigPathCommand(rt))
	return cmd
}

func newConfigInitCommand(rt *runtime) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(rt.configPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", rt.configPath)
			}
			cfg := rt.cfg
			cfg.BaseURL = cfg.BaseURLOrDefault()
			if cfg.PollTimeout == nil {
				cfg.PollTimeout = &config.Duration{Duration: cfg.PollTimeoutOrDefault()}
			}
			if err := config.Save(rt.configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.out, "Initialized config at %s\n", rt.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigPathCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(rt.out, rt.configPath)
			return nil
		},
	}
}
