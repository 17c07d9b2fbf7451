// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/internal/addon/builtin"
	"github.com/holomush/addonkit/internal/addon/lua"
	"github.com/holomush/addonkit/internal/addon/process"
)

// inspectLoaders maps each kind to the factory inspect resolves with.
var inspectLoaders = map[string]addon.LoaderFactory{
	builtin.Kind: builtin.Factory,
	lua.Kind:     lua.Factory,
	process.Kind: process.Factory,
}

// NewInspectCmd creates the inspect subcommand.
func NewInspectCmd() *cobra.Command {
	var kind, infoFile string

	cmd := &cobra.Command{
		Use:   "inspect <package>",
		Short: "Print a package's metadata and check its main entry",
		Long: `Read the info entry of a package directory or zip archive, print the
metadata it declares and check that the main entry resolves for the given
manager kind. Nothing is constructed or enabled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], kind, infoFile)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", builtin.Kind, "manager kind to resolve the main entry with (builtin, lua or process)")
	cmd.Flags().StringVar(&infoFile, "info-file", addon.DefaultInfoFile, "name of the info entry inside the package")

	return cmd
}

func runInspect(ctx context.Context, out io.Writer, path, kind, infoFile string) error {
	factory, ok := inspectLoaders[kind]
	if !ok {
		return addon.ErrUnknownKind(kind)
	}

	pkg, err := addon.OpenPackage(path)
	if err != nil {
		return err
	}
	defer func() { _ = pkg.Close() }()

	f, err := pkg.FS.Open(infoFile)
	if err != nil {
		return fmt.Errorf("open info entry %q: %w", infoFile, err)
	}
	meta, err := addon.ParseInfoEntry(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("parse info entry: %w", err)
	}
	meta.Package = path
	meta.Kind = kind

	info := addon.NewInfo(meta, nil)
	version := info.Version()
	if _, err := info.SemVer(); err != nil {
		version += " (non-semver)"
	}

	fmt.Fprintf(out, "Package: %s\n", path)
	fmt.Fprintf(out, "Name:    %s\n", info.Name())
	fmt.Fprintf(out, "Version: %s\n", version)
	fmt.Fprintf(out, "Authors: %s\n", strings.Join(info.Authors(), ", "))
	fmt.Fprintf(out, "Main:    %s\n", info.Main())

	loader, err := factory(&addon.Env{})
	if err != nil {
		return fmt.Errorf("create %s loader: %w", kind, err)
	}
	if _, err := loader.Resolve(ctx, pkg, info.Main()); err != nil {
		fmt.Fprintf(out, "Resolve: failed (%s)\n", kind)
		return fmt.Errorf("resolve main entry: %w", err)
	}
	fmt.Fprintf(out, "Resolve: ok (%s)\n", kind)
	return nil
}
