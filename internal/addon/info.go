// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Factory constructs a fresh instance of an addon's main entry. It is the
// zero-argument constructor a Loader resolves from a package.
type Factory func(ctx context.Context) (any, error)

// Info is the immutable descriptor of one discovered addon package.
//
// Two Infos describe the same addon when their Keys are equal; the resolved
// factory does not take part in identity.
type Info struct {
	main    string
	name    string
	version string
	authors []string
	pkg     string
	kind    string
	factory Factory
}

// Key is the comparable identity of an Info, used as the registry key.
type Key struct {
	Main    string
	Name    string
	Version string
	Authors string
	Package string
	Kind    string
}

// NewInfo creates an Info from metadata and the factory resolved for its
// main entry. The authors slice is copied.
func NewInfo(meta addonsdk.Metadata, factory Factory) *Info {
	authors := make([]string, len(meta.Authors))
	copy(authors, meta.Authors)
	return &Info{
		main:    meta.Main,
		name:    meta.Name,
		version: meta.Version,
		authors: authors,
		pkg:     meta.Package,
		kind:    meta.Kind,
		factory: factory,
	}
}

// Main returns the main-entry identifier.
func (i *Info) Main() string { return i.main }

// Name returns the display name.
func (i *Info) Name() string { return i.name }

// Version returns the version string.
func (i *Info) Version() string { return i.version }

// Authors returns a copy of the author list.
func (i *Info) Authors() []string {
	out := make([]string, len(i.authors))
	copy(out, i.authors)
	return out
}

// Package returns the path of the package the addon was read from.
func (i *Info) Package() string { return i.pkg }

// Kind returns the kind of the owning manager.
func (i *Info) Kind() string { return i.kind }

// Key returns the structural identity of the descriptor.
func (i *Info) Key() Key {
	return Key{
		Main:    i.main,
		Name:    i.name,
		Version: i.version,
		Authors: strings.Join(i.authors, "\x00"),
		Package: i.pkg,
		Kind:    i.kind,
	}
}

// Equal reports whether i and other describe the same addon.
func (i *Info) Equal(other *Info) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.Key() == other.Key()
}

// Metadata returns the addon-facing copy of the descriptor.
func (i *Info) Metadata() addonsdk.Metadata {
	return addonsdk.Metadata{
		Main:    i.main,
		Name:    i.name,
		Version: i.version,
		Authors: i.Authors(),
		Package: i.pkg,
		Kind:    i.kind,
	}
}

// SemVer parses the version string as a semantic version. Versions are free
// text in the info entry, so failure here is informational only.
func (i *Info) SemVer() (*semver.Version, error) {
	v, err := semver.NewVersion(i.version)
	if err != nil {
		return nil, fmt.Errorf("version %q of %s: %w", i.version, i.name, err)
	}
	return v, nil
}

// String returns "name version (kind)".
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (%s)", i.name, i.version, i.kind)
}
