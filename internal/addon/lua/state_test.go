// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	luavm "github.com/yuin/gopher-lua"
)

func TestStateFactory_OpensOnlySafeLibraries(t *testing.T) {
	L, err := NewStateFactory().NewState(context.Background())
	require.NoError(t, err)
	defer L.Close()

	for _, lib := range []string{"table", "string", "math"} {
		assert.NotEqual(t, luavm.LTNil, L.GetGlobal(lib).Type(), "library %q should be open", lib)
	}
	for _, lib := range []string{"os", "io", "debug", "package"} {
		assert.Equal(t, luavm.LTNil, L.GetGlobal(lib).Type(), "library %q should be closed", lib)
	}
	for _, fn := range blockedGlobals {
		assert.Equal(t, luavm.LTNil, L.GetGlobal(fn).Type(), "function %q should be removed", fn)
	}
}

func TestStateFactory_StatesAreIndependent(t *testing.T) {
	factory := NewStateFactory()
	L1, err := factory.NewState(context.Background())
	require.NoError(t, err)
	defer L1.Close()
	L2, err := factory.NewState(context.Background())
	require.NoError(t, err)
	defer L2.Close()

	require.NoError(t, L1.DoString(`foo = string.upper("bar")`))
	assert.Equal(t, "BAR", L1.GetGlobal("foo").String())
	assert.Equal(t, luavm.LTNil, L2.GetGlobal("foo").Type())
}

func TestStateFactory_LibraryFailure(t *testing.T) {
	factory := &StateFactory{libraries: []library{
		{"failing", func(L *luavm.LState) int {
			L.RaiseError("simulated failure")
			return 0
		}},
	}}

	_, err := factory.NewState(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open library failing")
}

func TestCompile(t *testing.T) {
	proto, err := compile(`x = 1 + 1`, "ok.lua")
	require.NoError(t, err)
	assert.NotNil(t, proto)

	_, err = compile(`function broken(`, "bad.lua")
	assert.Error(t, err)
}
