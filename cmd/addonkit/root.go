// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/addonkit/internal/config"
	"github.com/holomush/addonkit/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the addonkit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addonkit",
		Short: "addonkit - an addon host",
		Long: `addonkit discovers addon packages, loads them through per-kind
managers (builtin, lua and process) and drives their lifecycle from an
administrative console.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/addonkit/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewExecCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads the configuration named by --config, or the XDG default
// when the flag is empty. Only an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile, true, cmd.Flags())
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		// No home directory: run on defaults and flags alone.
		return config.Load("", false, cmd.Flags())
	}
	return config.Load(path, false, cmd.Flags())
}
