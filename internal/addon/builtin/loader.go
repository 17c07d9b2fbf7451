// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package builtin loads addons that are compiled into the host binary.
//
// A builtin package holds only its info entry; the main-entry identifier
// names a constructor registered with addonsdk.Register. Installing a new
// builtin addon therefore needs a rebuild of the host, while enabling,
// disabling and reloading still happen at runtime.
package builtin

import (
	"context"

	"github.com/samber/oops"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Kind is the manager kind served by this loader.
const Kind = "builtin"

// Lookup finds a registered constructor by main-entry identifier.
type Lookup func(main string) (addonsdk.Constructor, bool)

// Loader resolves main entries against a constructor registry.
type Loader struct {
	lookup Lookup
}

// NewLoader creates a loader over the process-wide addonsdk registry.
func NewLoader() *Loader {
	return &Loader{lookup: addonsdk.Lookup}
}

// NewLoaderWithLookup creates a loader over a custom registry (for testing).
func NewLoaderWithLookup(lookup Lookup) *Loader {
	if lookup == nil {
		panic("builtin: lookup cannot be nil")
	}
	return &Loader{lookup: lookup}
}

// Factory is the addon.LoaderFactory for the builtin kind.
func Factory(*addon.Env) (addon.Loader, error) {
	return NewLoader(), nil
}

// Kind implements addon.Loader.
func (l *Loader) Kind() string { return Kind }

// Resolve implements addon.Loader. The package contents beyond the info
// entry are not consulted.
func (l *Loader) Resolve(_ context.Context, _ *addon.Package, main string) (addon.Factory, error) {
	ctor, ok := l.lookup(main)
	if !ok {
		return nil, oops.In("builtin").
			With("main", main).
			Hint("register the constructor with addonsdk.Register").
			Errorf("no builtin addon registered as %q", main)
	}
	return func(context.Context) (any, error) {
		return ctor()
	}, nil
}
