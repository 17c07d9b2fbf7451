// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addonsdk

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Settings is an addon's private key/value store. Keys use "." as the path
// delimiter. Values written with Set are persisted when the host releases
// the store.
type Settings interface {
	String(key, def string) string
	Int(key string, def int) int
	Bool(key string, def bool) bool
	Strings(key string, def []string) []string
	Set(key string, value any) error
	Keys() []string
}

// ErrReadOnly is returned by Set on a settings snapshot.
var ErrReadOnly = errors.New("settings snapshot is read-only")

// Snapshot is a read-only Settings built from flattened string values. It is
// what out-of-process addons receive, since a live store cannot cross the
// process boundary.
type Snapshot map[string]string

// SnapshotOf flattens s into a Snapshot. List values are joined with ",".
func SnapshotOf(s Settings) Snapshot {
	out := make(Snapshot)
	for _, k := range s.Keys() {
		if list := s.Strings(k, nil); len(list) > 0 {
			out[k] = strings.Join(list, ",")
			continue
		}
		out[k] = s.String(k, "")
	}
	return out
}

// String implements Settings.
func (s Snapshot) String(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// Int implements Settings.
func (s Snapshot) Int(key string, def int) int {
	v, ok := s[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool implements Settings.
func (s Snapshot) Bool(key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Strings implements Settings. Values are split on ",".
func (s Snapshot) Strings(key string, def []string) []string {
	v, ok := s[key]
	if !ok || v == "" {
		return def
	}
	return strings.Split(v, ",")
}

// Set implements Settings and always fails.
func (s Snapshot) Set(string, any) error {
	return ErrReadOnly
}

// Keys implements Settings.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
