// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addonsdk

// Thread describes one background worker run by an addon.
//
// Thread is comparable so the host can build sets of threads across addons.
type Thread struct {
	// Owner is the display name of the addon. The host fills it in.
	Owner string
	// Name identifies the worker within its addon.
	Name string
	// ID is an optional runtime identifier such as a process ID.
	ID string
}
