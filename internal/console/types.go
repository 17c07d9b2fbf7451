// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package console provides the administrative console: a registry of root
// commands, a permission-checking dispatcher and the addon command.
package console

import (
	"context"
	"io"
	"strings"

	"github.com/holomush/addonkit/internal/addon"
)

// Handler runs one root command.
type Handler func(ctx context.Context, exec *Execution) error

// Entry is a registered root command.
type Entry struct {
	Name       string  // canonical name (e.g., "addon")
	Handler    Handler // command implementation
	Permission string  // required to run the command at all
	Help       string  // short description (one line)
	Usage      string  // usage pattern (e.g., "addon <subcommand> ...")
}

// Execution is the context a handler runs in.
type Execution struct {
	// Operator identifies who issued the command; permissions are checked
	// against it.
	Operator string
	// Args is the unparsed argument string.
	Args string
	// Output receives everything the command prints.
	Output io.Writer
	// Service is the addon service the command acts on.
	Service *addon.Service
	// Allowed checks a permission for Operator. Set by the dispatcher.
	Allowed func(permission string) bool
}

// Words splits Args into the whitespace-separated words subcommands take.
func (e *Execution) Words() []string {
	return strings.Fields(e.Args)
}
