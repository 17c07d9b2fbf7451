// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Global function names a script may define.
const (
	fnEnable  = "on_enable"
	fnDisable = "on_disable"
	fnThreads = "threads"
)

// errClosed is returned by calls on a script whose state was closed.
var errClosed = errors.New("lua state is closed")

// unset marks a settings lookup that found nothing.
const unset = "\x00unset"

// Script is one running instance of an addon script. A Lua state is not
// safe for concurrent use, so every call into it is serialized.
type Script struct {
	main string

	mu       sync.Mutex
	L        *lua.LState
	mod      *lua.LTable
	logger   *slog.Logger
	settings addonsdk.Settings
	closed   bool
}

var (
	_ addonsdk.Prober            = (*Script)(nil)
	_ addonsdk.InfoReceiver      = (*Script)(nil)
	_ addonsdk.SettingsReceiver  = (*Script)(nil)
	_ addonsdk.DirectoryReceiver = (*Script)(nil)
	_ addonsdk.Enabler           = (*Script)(nil)
	_ addonsdk.Disabler          = (*Script)(nil)
	_ addonsdk.ThreadLister      = (*Script)(nil)
)

func newScript(ctx context.Context, states *StateFactory, proto *lua.FunctionProto, main string, logger *slog.Logger) (*Script, error) {
	L, err := states.NewState(ctx)
	if err != nil {
		return nil, err
	}

	s := &Script{
		main:   main,
		L:      L,
		logger: logger.With("script", main),
	}
	s.mod = s.registerAPI()

	L.SetContext(ctx)
	L.Push(L.NewFunctionFromProto(proto))
	err = L.PCall(0, lua.MultRet, nil)
	L.RemoveContext()
	L.SetTop(0)
	if err != nil {
		L.Close()
		return nil, oops.In("lua").With("script", main).Hint("script failed while loading").Wrap(err)
	}
	return s, nil
}

// registerAPI installs the addon table.
func (s *Script) registerAPI() *lua.LTable {
	L := s.L
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(s.logFn))
	L.SetField(mod, "new_id", L.NewFunction(newIDFn))

	st := L.NewTable()
	L.SetField(st, "get", L.NewFunction(s.settingsGetFn))
	L.SetField(st, "set", L.NewFunction(s.settingsSetFn))
	L.SetField(mod, "settings", st)

	L.SetGlobal("addon", mod)
	return mod
}

// Provides implements addonsdk.Prober. Injection slots are always accepted;
// hooks exist only when the script defines the matching global function.
func (s *Script) Provides(c addonsdk.Capability) bool {
	switch c {
	case addonsdk.CapabilityInfo, addonsdk.CapabilitySettings, addonsdk.CapabilityDirectory:
		return true
	case addonsdk.CapabilityEnable:
		return s.hasFunction(fnEnable)
	case addonsdk.CapabilityDisable:
		return s.hasFunction(fnDisable)
	case addonsdk.CapabilityThreads:
		return s.hasFunction(fnThreads)
	default:
		return false
	}
}

func (s *Script) hasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_, ok := s.L.GetGlobal(name).(*lua.LFunction)
	return ok
}

// SetAddonInfo implements addonsdk.InfoReceiver by publishing addon.info.
func (s *Script) SetAddonInfo(meta addonsdk.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	L := s.L
	info := L.NewTable()
	L.SetField(info, "main", lua.LString(meta.Main))
	L.SetField(info, "name", lua.LString(meta.Name))
	L.SetField(info, "version", lua.LString(meta.Version))
	L.SetField(info, "package", lua.LString(meta.Package))
	L.SetField(info, "kind", lua.LString(meta.Kind))
	authors := L.NewTable()
	for _, a := range meta.Authors {
		authors.Append(lua.LString(a))
	}
	L.SetField(info, "authors", authors)
	L.SetField(s.mod, "info", info)

	s.logger = s.logger.With("addon", meta.Name)
	return nil
}

// SetSettings implements addonsdk.SettingsReceiver.
func (s *Script) SetSettings(settings addonsdk.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

// SetDirectory implements addonsdk.DirectoryReceiver by publishing addon.dir.
func (s *Script) SetDirectory(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.L.SetField(s.mod, "dir", lua.LString(dir))
	return nil
}

// OnEnable implements addonsdk.Enabler by calling on_enable().
func (s *Script) OnEnable(ctx context.Context) error {
	_, err := s.call(ctx, fnEnable, 0)
	return err
}

// OnDisable implements addonsdk.Disabler by calling on_disable().
func (s *Script) OnDisable(ctx context.Context) error {
	_, err := s.call(ctx, fnDisable, 0)
	return err
}

// Threads implements addonsdk.ThreadLister by calling threads(). The script
// returns a list whose entries are either names or tables with name and id
// fields; anything else is rejected.
func (s *Script) Threads() ([]addonsdk.Thread, error) {
	ret, err := s.call(context.Background(), fnThreads, 1)
	if err != nil {
		return nil, err
	}

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, oops.In("lua").With("script", s.main).Errorf("threads() returned %s, not a table", ret.Type())
	}

	var (
		threads []addonsdk.Thread
		bad     error
	)
	tbl.ForEach(func(key, value lua.LValue) {
		if bad != nil {
			return
		}
		switch v := value.(type) {
		case lua.LString:
			threads = append(threads, addonsdk.Thread{Name: string(v), ID: lua.LVAsString(key)})
		case *lua.LTable:
			t := addonsdk.Thread{
				Name: lua.LVAsString(v.RawGetString("name")),
				ID:   lua.LVAsString(v.RawGetString("id")),
			}
			if t.ID == "" {
				t.ID = lua.LVAsString(key)
			}
			threads = append(threads, t)
		default:
			bad = oops.In("lua").With("script", s.main).Errorf("threads() entry %s is a %s", lua.LVAsString(key), value.Type())
		}
	})
	if bad != nil {
		return nil, bad
	}
	return threads, nil
}

// Close releases the Lua state.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.L.Close()
	return nil
}

// call invokes a global function with no arguments. A missing function is
// not an error and yields nil.
func (s *Script) call(ctx context.Context, name string, nret int) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil, errClosed
	}

	fn, ok := s.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, nil
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}); err != nil {
		return lua.LNil, oops.In("lua").With("script", s.main).With("function", name).Wrap(err)
	}
	if nret == 0 {
		return lua.LNil, nil
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

// The host functions below run inside call, so s.mu is already held.

func (s *Script) logFn(L *lua.LState) int {
	level := L.CheckString(1)
	message := L.CheckString(2)

	switch level {
	case "debug":
		s.logger.Debug(message)
	case "warn":
		s.logger.Warn(message)
	case "error":
		s.logger.Error(message)
	default:
		s.logger.Info(message)
	}
	return 0
}

func newIDFn(L *lua.LState) int {
	L.Push(lua.LString(ulid.Make().String()))
	return 1
}

func (s *Script) settingsGetFn(L *lua.LState) int {
	key := L.CheckString(1)
	def := L.Get(2)

	if s.settings == nil {
		L.Push(def)
		return 1
	}
	v := s.settings.String(key, unset)
	if v == unset {
		L.Push(def)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func (s *Script) settingsSetFn(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckAny(2)

	if s.settings == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("settings not available"))
		return 2
	}

	var goValue any
	switch v := value.(type) {
	case lua.LBool:
		goValue = bool(v)
	case lua.LNumber:
		if f := float64(v); f == float64(int64(f)) {
			goValue = int64(f)
		} else {
			goValue = f
		}
	default:
		goValue = lua.LVAsString(v)
	}

	if err := s.settings.Set(key, goValue); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}
