// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"context"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// library is a Lua standard library opened in every addon state.
type library struct {
	name string
	fn   lua.LGFunction
}

// safeLibraries returns the libraries addon scripts may use: base, table,
// string and math. os, io, debug and package stay closed.
func safeLibraries() []library {
	return []library{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// blockedGlobals are base functions that read or execute files.
var blockedGlobals = []string{"dofile", "loadfile", "loadstring", "load"}

// StateFactory creates restricted Lua states for addon scripts.
type StateFactory struct {
	libraries []library
}

// NewStateFactory creates a factory that opens the safe libraries.
func NewStateFactory() *StateFactory {
	return &StateFactory{libraries: safeLibraries()}
}

// NewState creates a fresh state with only the safe libraries opened and
// the file-loading base functions removed.
func (f *StateFactory) NewState(_ context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.In("lua").With("library", lib.name).Wrapf(err, "open library %s", lib.name)
		}
	}

	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

// compile parses and compiles a script once. The resulting prototype is
// immutable and can be instantiated in any number of states.
func compile(code, name string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(code), name)
	if err != nil {
		return nil, oops.In("lua").With("script", name).Hint("syntax error").Wrap(err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, oops.In("lua").With("script", name).Wrap(err)
	}
	return proto, nil
}
