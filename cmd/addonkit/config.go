// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holomush/addonkit/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return fmt.Errorf("generate schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a configuration file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if err := config.ValidateSchema(data); err != nil {
				cmd.PrintErrln(config.FormatSchemaError(err))
				return fmt.Errorf("%s is invalid", path)
			}
			if _, err := config.Load(path, true, nil); err != nil {
				return fmt.Errorf("%s is invalid: %w", path, err)
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "log.format:       %s\n", cfg.Log.Format)
			fmt.Fprintf(out, "log.level:        %s\n", cfg.Log.Level)
			fmt.Fprintf(out, "metrics.addr:     %s\n", cfg.Metrics.Addr)
			fmt.Fprintf(out, "addon.settings:   %s\n", cfg.Addon.Settings)
			fmt.Fprintf(out, "console.operator: %s\n", cfg.Console.Operator)
			fmt.Fprintf(out, "console.grants:   %v\n", cfg.Console.Grants)
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}
