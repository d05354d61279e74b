// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration commands for datachat.
//
// Command: config [show|path|init]
//
// Examples:
//   datachat config show           Show the effective config as TOML
//   datachat config show -o json   Same, as JSON
//   datachat config path           Print the config file path
//   datachat config init           Write a default config file

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/datachat-tui/internal/config"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after the config file, DATACHAT_* environment
variables, and command-line flags have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			return a.printer.PrintData("config show", a.cfg, func(w io.Writer) error {
				fmt.Fprintf(w, "# %s\n", a.configPath)
				return toml.NewEncoder(w).Encode(a.cfg)
			})
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := configPathFor(flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := configPathFor(flags)
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil && !force {
				return &ValidationError{Field: "config", Value: p, Reason: "file already exists", Example: "datachat config init --force"}
			}

			cfg := config.Default()
			if flags.backendURL != "" {
				cfg.Backend.URL = flags.backendURL
			}
			if err := config.SaveTOML(cfg, p); err != nil {
				return &ConfigError{Path: p, Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote "+p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}

func configPathFor(flags *globalFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	p, err := defaultConfigPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return p, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datachat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
