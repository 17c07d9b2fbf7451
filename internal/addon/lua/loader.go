// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lua loads addons written as Lua scripts.
//
// The main-entry identifier of a lua package is the path of its script
// inside the package. The script is compiled when the package is scanned
// and run in a fresh restricted state for every constructed instance. It
// may define the globals on_enable, on_disable and threads, and can reach
// the host through the addon table:
//
//	addon.log(level, message)
//	addon.new_id()
//	addon.settings.get(key [, default])
//	addon.settings.set(key, value)
//	addon.info    -- main, name, version, authors, package, kind
//	addon.dir     -- working directory
package lua

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/addonkit/internal/addon"
)

// Kind is the manager kind served by this loader.
const Kind = "lua"

// Loader compiles addon scripts from packages.
type Loader struct {
	states *StateFactory
	logger *slog.Logger
}

// NewLoader creates a loader. Script log output goes to logger.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		states: NewStateFactory(),
		logger: logger,
	}
}

// Factory is the addon.LoaderFactory for the lua kind.
func Factory(env *addon.Env) (addon.Loader, error) {
	return NewLoader(env.Logger), nil
}

// Kind implements addon.Loader.
func (l *Loader) Kind() string { return Kind }

// Resolve implements addon.Loader. The script is read and compiled now, so
// syntax errors surface while the package is scanned.
func (l *Loader) Resolve(_ context.Context, pkg *addon.Package, main string) (addon.Factory, error) {
	if !fs.ValidPath(main) {
		return nil, oops.In("lua").With("main", main).Errorf("invalid script path %q", main)
	}
	code, err := fs.ReadFile(pkg.FS, main)
	if err != nil {
		return nil, oops.In("lua").With("main", main).Hint("script not found in package").Wrap(err)
	}
	proto, err := compile(string(code), main)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (any, error) {
		return newScript(ctx, l.states, proto, main, l.logger)
	}, nil
}
