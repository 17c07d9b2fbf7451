// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package permission decides which console operations an operator may run.
//
// Permissions are dot-separated identifiers such as "addon.enable". Grants
// are gobwas/glob patterns compiled with '.' as the segment separator:
//   - '*' matches a single segment (does not cross '.')
//   - '**' matches zero or more segments (crosses '.')
//
// A grant of "addon.**" therefore covers every addon subcommand but not the
// root "addon" identifier itself; grant both to allow the whole command.
package permission

import (
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Error codes for grant configuration failures.
const (
	CodeInvalidSubject = "INVALID_SUBJECT"
	CodeInvalidPattern = "INVALID_PATTERN"
)

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer checks operator permissions.
//
// Enforcer is safe for concurrent use. The zero value is ready to use.
type Enforcer struct {
	grants map[string][]compiledGrant
	mu     sync.RWMutex
}

// NewEnforcer creates an empty enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{grants: make(map[string][]compiledGrant)}
}

// Grant replaces the patterns granted to subject. Either every pattern
// compiles and the grants are replaced, or nothing changes.
func (e *Enforcer) Grant(subject string, patterns []string) error {
	if subject == "" {
		return oops.Code(CodeInvalidSubject).In("permission").Errorf("subject cannot be empty")
	}

	compiled := make([]compiledGrant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return oops.Code(CodeInvalidPattern).In("permission").
				With("subject", subject).
				With("index", i).
				Errorf("empty permission pattern")
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return oops.Code(CodeInvalidPattern).In("permission").
				With("subject", subject).
				With("pattern", pattern).
				Wrapf(err, "compile pattern %q", pattern)
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[subject] = compiled
	return nil
}

// Revoke removes every grant of subject.
func (e *Enforcer) Revoke(subject string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.grants, subject)
}

// Grants returns a copy of the patterns granted to subject, or nil.
func (e *Enforcer) Grants(subject string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	grants, ok := e.grants[subject]
	if !ok {
		return nil
	}
	patterns := make([]string, len(grants))
	for i, g := range grants {
		patterns[i] = g.pattern
	}
	return patterns
}

// Subjects returns every subject with grants, sorted.
func (e *Enforcer) Subjects() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	subjects := make([]string, 0, len(e.grants))
	for s := range e.grants {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}

// Allowed reports whether subject holds permission. Unknown subjects and
// empty permissions are denied.
func (e *Enforcer) Allowed(subject, permission string) bool {
	if permission == "" {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, grant := range e.grants[subject] {
		if grant.glob.Match(permission) {
			return true
		}
	}
	return false
}
