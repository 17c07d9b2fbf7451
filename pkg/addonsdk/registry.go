// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addonsdk

import (
	"sort"
	"sync"
)

// Constructor builds a fresh addon instance.
type Constructor func() (any, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register makes an in-process addon constructor available under the given
// main-entry identifier. It is meant to be called from init functions and
// panics if main is empty, ctor is nil, or main is already registered.
func Register(main string, ctor Constructor) {
	if main == "" {
		panic("addonsdk: Register called with empty identifier")
	}
	if ctor == nil {
		panic("addonsdk: Register constructor is nil for " + main)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[main]; dup {
		panic("addonsdk: Register called twice for " + main)
	}
	registry[main] = ctor
}

// Lookup returns the constructor registered under main.
func Lookup(main string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ctor, ok := registry[main]
	return ctor, ok
}

// Registered returns the sorted identifiers of all registered constructors.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
