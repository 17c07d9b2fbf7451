// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"context"
)

// Loader turns the main-entry identifier of a package into a Factory. Each
// manager kind has exactly one Loader; it decides what a package contains
// and how its code is brought into the host.
type Loader interface {
	// Kind returns the manager kind this loader serves.
	Kind() string
	// Resolve locates main inside pkg. The package is closed after Resolve
	// returns, so the factory must not keep references into pkg.FS.
	Resolve(ctx context.Context, pkg *Package, main string) (Factory, error)
}

// LoaderFactory builds the Loader for a kind. It is called once, when the
// service first instantiates a manager of that kind.
type LoaderFactory func(env *Env) (Loader, error)
