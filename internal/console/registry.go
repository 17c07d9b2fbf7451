// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry manages root command registration and lookup.
// It is safe for concurrent use.
type Registry struct {
	commands map[string]Entry
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry. Conflicts are logged to logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		commands: make(map[string]Entry),
		logger:   logger,
	}
}

// Register adds a root command. Names are case-insensitive; registering a
// name twice replaces the earlier entry and logs a warning.
func (r *Registry) Register(entry Entry) {
	key := strings.ToLower(entry.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[key]; ok {
		r.logger.Warn("console command conflict: overwriting existing command", "command", entry.Name)
	}
	r.commands[key] = entry
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[strings.ToLower(name)]
	return entry, ok
}

// All returns every registered command sorted by name.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
