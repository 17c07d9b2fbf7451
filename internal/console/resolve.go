// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"context"
	"strings"

	"github.com/holomush/addonkit/internal/addon"
)

// Name resolution is a case-insensitive substring match. Managers are
// searched in sorted kind order and addons in sorted name order, so the
// first match is deterministic.

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// findManager returns the first instantiated manager whose kind contains name.
func findManager(svc *addon.Service, name string) *addon.Manager {
	for _, kind := range svc.Managers() {
		if containsFold(kind, name) {
			return svc.Manager(kind)
		}
	}
	return nil
}

// findAddonIn returns the first addon of m whose name contains name.
// Registered addons are searched before packages that are only present on
// disk, so an unloaded addon can still be found.
func findAddonIn(ctx context.Context, m *addon.Manager, name string) *addon.Info {
	for _, info := range m.AddonInfo() {
		if containsFold(info.Name(), name) {
			return info
		}
	}
	discovered, err := m.Discover(ctx)
	if err != nil {
		return nil
	}
	for _, info := range discovered {
		if containsFold(info.Name(), name) {
			return info
		}
	}
	return nil
}

// findAddon searches every instantiated manager for name. Registered addons
// of any manager win over packages only present on disk.
func findAddon(ctx context.Context, svc *addon.Service, name string) *addon.Info {
	kinds := svc.Managers()
	for _, kind := range kinds {
		for _, info := range svc.Manager(kind).AddonInfo() {
			if containsFold(info.Name(), name) {
				return info
			}
		}
	}
	for _, kind := range kinds {
		if info := findAddonIn(ctx, svc.Manager(kind), name); info != nil {
			return info
		}
	}
	return nil
}
