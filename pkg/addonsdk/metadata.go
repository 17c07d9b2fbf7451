// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addonsdk

import "strings"

// Metadata is the addon-facing copy of an addon's descriptor.
type Metadata struct {
	// Main is the main-entry identifier from the first line of the info entry.
	Main string
	// Name is the display name.
	Name string
	// Version is the version string exactly as written in the info entry.
	Version string
	// Authors lists the authors in file order.
	Authors []string
	// Package is the filesystem path of the package the addon was read from.
	Package string
	// Kind is the kind of the manager that owns the addon.
	Kind string
}

// String returns "name version".
func (m Metadata) String() string {
	return strings.TrimSpace(m.Name + " " + m.Version)
}
