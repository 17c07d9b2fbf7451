// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is the subset of testing.TB the assertions need. *testing.T and
// ginkgo's GinkgoT() both satisfy it.
type TestingT interface {
	require.TestingT
	Helper()
}

// AssertErrorCode fails t unless err is an oops error whose code is code.
// Codes set on an inner error and inherited by wrapping oops errors count.
func AssertErrorCode(t TestingT, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails t unless the oops context of err maps key to value.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	got, present := oopsErr.Context()[key]
	require.True(t, present, "context has no %q: %v", key, oopsErr.Context())
	assert.Equal(t, value, got)
}

// AssertErrorDomain fails t unless err is an oops error raised in domain.
func AssertErrorDomain(t TestingT, err error, domain string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, domain, oopsErr.Domain())
}
