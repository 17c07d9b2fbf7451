// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holomush/addonkit/internal/config"
	"github.com/holomush/addonkit/internal/logging"
)

// NewExecCmd creates the exec subcommand.
func NewExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <command line>",
		Short: "Run one console command against a freshly started service",
		Long: `Start the addon service, run a single console command as the configured
operator, print its output and stop the service again.

Example:
  addonkit exec addon list`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runExec(cmd, cfg, strings.Join(args, " "))
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runExec(cmd *cobra.Command, cfg *config.Config, line string) error {
	logger, err := logging.Setup("addonkit", version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	h, err := newHost(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := h.service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start addon service: %w", err)
	}

	runErr := h.run(ctx, line, cmd.OutOrStdout())

	if err := h.service.Stop(ctx); err != nil {
		logger.Warn("error stopping addon service", "error", err)
	}
	return runErr
}
