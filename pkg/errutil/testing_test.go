// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/addonkit/pkg/errutil"
)

// recordingT captures failures instead of failing the enclosing test.
type recordingT struct {
	failed bool
}

func (r *recordingT) Errorf(string, ...any) { r.failed = true }
func (r *recordingT) FailNow()              { r.failed = true; panic(r) }
func (r *recordingT) Helper()               {}

// fails runs assertion against a recordingT and reports whether it failed.
func fails(assertion func(t errutil.TestingT)) (failed bool) {
	r := &recordingT{}
	defer func() {
		if v := recover(); v != nil && v != r {
			panic(v)
		}
		failed = r.failed
	}()
	assertion(r)
	return r.failed
}

func TestAssertErrorCode(t *testing.T) {
	err := oops.Code("KIND_MISMATCH").Errorf("wrong manager")
	errutil.AssertErrorCode(t, err, "KIND_MISMATCH")

	wrapped := oops.In("service").Wrapf(err, "load")
	errutil.AssertErrorCode(t, wrapped, "KIND_MISMATCH")

	assert.True(t, fails(func(rt errutil.TestingT) { errutil.AssertErrorCode(rt, err, "OTHER") }))
	assert.True(t, fails(func(rt errutil.TestingT) { errutil.AssertErrorCode(rt, errors.New("plain"), "KIND_MISMATCH") }))
	assert.True(t, fails(func(rt errutil.TestingT) { errutil.AssertErrorCode(rt, nil, "KIND_MISMATCH") }))
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.With("kind", "lua").Errorf("unknown kind")
	errutil.AssertErrorContext(t, err, "kind", "lua")

	assert.True(t, fails(func(rt errutil.TestingT) { errutil.AssertErrorContext(rt, err, "kind", "process") }))
	assert.True(t, fails(func(rt errutil.TestingT) { errutil.AssertErrorContext(rt, err, "addon", "lua") }))
}

func TestAssertErrorDomain(t *testing.T) {
	err := oops.In("settings").Errorf("bad key")
	errutil.AssertErrorDomain(t, err, "settings")

	assert.True(t, fails(func(rt errutil.TestingT) { errutil.AssertErrorDomain(rt, err, "config") }))
	assert.True(t, fails(func(rt errutil.TestingT) {
		errutil.AssertErrorDomain(rt, fmt.Errorf("plain"), "settings")
	}))
}
