// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package settings provides file-backed key/value settings stores.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Compile-time interface check.
var _ addonsdk.Settings = (*Store)(nil)

// Store is a YAML settings document. Load reads it, Release writes it back
// if anything was Set in between. Keys are "."-delimited paths.
type Store struct {
	path  string
	k     *koanf.Koanf
	dirty bool
	mu    sync.RWMutex
}

// NewStore creates a store for the YAML file at path. Nothing is read until
// Load is called.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		k:    koanf.New("."),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load (re)reads the backing file. A missing file yields an empty store.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.k = koanf.New(".")
	s.dirty = false

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.In("settings").With("path", s.path).Wrap(err)
	}

	if err := s.k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		return oops.In("settings").With("path", s.path).Hint("invalid settings file").Wrap(err)
	}
	return nil
}

// Release writes pending changes to the backing file. The in-memory values
// stay readable afterwards.
func (s *Store) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := yamlv3.Marshal(s.k.Raw())
	if err != nil {
		return oops.In("settings").With("path", s.path).Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return oops.In("settings").With("path", s.path).Hint("cannot create settings directory").Wrap(err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return oops.In("settings").With("path", s.path).Wrap(err)
	}

	s.dirty = false
	return nil
}

// Exists reports whether key holds a value.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Exists(key)
}

// Get returns the raw value at key, or nil.
func (s *Store) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Get(key)
}

// String returns the value at key, or def if unset.
func (s *Store) String(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.k.Exists(key) {
		return def
	}
	return s.k.String(key)
}

// Int returns the value at key, or def if unset.
func (s *Store) Int(key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.k.Exists(key) {
		return def
	}
	return s.k.Int(key)
}

// Bool returns the value at key, or def if unset.
func (s *Store) Bool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.k.Exists(key) {
		return def
	}
	return s.k.Bool(key)
}

// Strings returns the list at key, or def if unset or not a list.
func (s *Store) Strings(key string, def []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.k.Exists(key) {
		return def
	}
	list := s.k.Strings(key)
	if len(list) == 0 {
		return def
	}
	return list
}

// Set stores value at key. The change is persisted by the next Release.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		return oops.In("settings").New("settings key cannot be empty")
	}
	if err := s.k.Set(key, value); err != nil {
		return oops.In("settings").With("key", key).Wrap(err)
	}
	s.dirty = true
	return nil
}

// Keys returns all leaf keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.k.Keys()
	sort.Strings(keys)
	return keys
}
