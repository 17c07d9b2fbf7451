// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/addonkit/internal/addon"
	addonlua "github.com/holomush/addonkit/internal/addon/lua"
	"github.com/holomush/addonkit/internal/settings"
	"github.com/holomush/addonkit/pkg/addonsdk"
)

const greeterScript = `
local enabled = 0

addon.log("debug", "script loaded")

function on_enable()
  enabled = enabled + 1
  local greeting = addon.settings.get("greeting", "hello")
  addon.settings.set("last_greeting", greeting .. " from " .. addon.info.name)
  addon.settings.set("enable_count", enabled)
end

function on_disable()
  addon.log("info", "bye from " .. addon.dir)
end

function threads()
  return { "poller", { name = "flusher", id = "f-1" } }
end
`

func pkgOf(files map[string]string) *addon.Package {
	mapFS := fstest.MapFS{}
	for name, content := range files {
		mapFS[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return &addon.Package{Path: "test", FS: mapFS}
}

func construct(t *testing.T, logger *slog.Logger, code string) *addonlua.Script {
	t.Helper()
	loader := addonlua.NewLoader(logger)
	factory, err := loader.Resolve(context.Background(), pkgOf(map[string]string{"main.lua": code}), "main.lua")
	require.NoError(t, err)
	instance, err := factory(context.Background())
	require.NoError(t, err)
	script, ok := instance.(*addonlua.Script)
	require.True(t, ok)
	t.Cleanup(func() { _ = script.Close() })
	return script
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLoader_Resolve_Errors(t *testing.T) {
	loader := addonlua.NewLoader(discard())
	ctx := context.Background()

	_, err := loader.Resolve(ctx, pkgOf(nil), "missing.lua")
	assert.Error(t, err)

	_, err = loader.Resolve(ctx, pkgOf(map[string]string{"main.lua": "function ("}), "main.lua")
	assert.Error(t, err, "syntax errors surface at resolve time")

	_, err = loader.Resolve(ctx, pkgOf(nil), "../escape.lua")
	assert.Error(t, err)
}

func TestLoader_Construct_RuntimeError(t *testing.T) {
	loader := addonlua.NewLoader(discard())
	factory, err := loader.Resolve(context.Background(),
		pkgOf(map[string]string{"main.lua": `error("refusing to start")`}), "main.lua")
	require.NoError(t, err)

	_, err = factory(context.Background())
	assert.ErrorContains(t, err, "refusing to start")
}

func TestLoader_FactoryYieldsIndependentStates(t *testing.T) {
	loader := addonlua.NewLoader(discard())
	ctx := context.Background()
	factory, err := loader.Resolve(ctx, pkgOf(map[string]string{"main.lua": greeterScript}), "main.lua")
	require.NoError(t, err)

	a, err := factory(ctx)
	require.NoError(t, err)
	b, err := factory(ctx)
	require.NoError(t, err)
	defer a.(io.Closer).Close()
	defer b.(io.Closer).Close()

	assert.NotSame(t, a, b)
}

func TestScript_Provides(t *testing.T) {
	full := construct(t, discard(), greeterScript)
	for _, c := range addonsdk.AllCapabilities() {
		assert.True(t, addonsdk.Provides(full, c), "capability %s", c)
	}

	bare := construct(t, discard(), `x = 1`)
	assert.True(t, addonsdk.Provides(bare, addonsdk.CapabilityInfo))
	assert.True(t, addonsdk.Provides(bare, addonsdk.CapabilitySettings))
	assert.True(t, addonsdk.Provides(bare, addonsdk.CapabilityDirectory))
	assert.False(t, addonsdk.Provides(bare, addonsdk.CapabilityEnable))
	assert.False(t, addonsdk.Provides(bare, addonsdk.CapabilityDisable))
	assert.False(t, addonsdk.Provides(bare, addonsdk.CapabilityThreads))
}

func TestScript_HooksUseInjectedContext(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	script := construct(t, logger, greeterScript)
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, store.Set("greeting", "hi"))
	ctx := context.Background()

	require.NoError(t, script.SetAddonInfo(addonsdk.Metadata{Name: "Greeter", Authors: []string{"Alice"}}))
	require.NoError(t, script.SetSettings(store))
	require.NoError(t, script.SetDirectory("/srv/run/Greeter"))

	require.NoError(t, script.OnEnable(ctx))
	require.NoError(t, script.OnEnable(ctx))
	assert.Equal(t, "hi from Greeter", store.String("last_greeting", ""))
	assert.Equal(t, 2, store.Int("enable_count", 0))

	require.NoError(t, script.OnDisable(ctx))
	assert.Contains(t, logs.String(), "script loaded")
	assert.Contains(t, logs.String(), "bye from /srv/run/Greeter")
	assert.Contains(t, logs.String(), "addon=Greeter")
}

func TestScript_SettingsUnavailable(t *testing.T) {
	script := construct(t, discard(), `
function on_enable()
  local v = addon.settings.get("anything", "fallback")
  local ok, err = addon.settings.set("k", "v")
  if v ~= "fallback" or ok ~= nil or err == nil then
    error("unexpected settings behaviour")
  end
end
`)
	assert.NoError(t, script.OnEnable(context.Background()))
}

func TestScript_Threads(t *testing.T) {
	script := construct(t, discard(), greeterScript)

	threads, err := script.Threads()
	require.NoError(t, err)
	assert.Equal(t, []addonsdk.Thread{
		{Name: "poller", ID: "1"},
		{Name: "flusher", ID: "f-1"},
	}, threads)
}

func TestScript_Threads_Unusable(t *testing.T) {
	for name, code := range map[string]string{
		"not a table": `function threads() return 42 end`,
		"bad entry":   `function threads() return { true } end`,
		"raises":      `function threads() error("nope") end`,
	} {
		t.Run(name, func(t *testing.T) {
			script := construct(t, discard(), code)
			_, err := script.Threads()
			assert.Error(t, err)
		})
	}
}

func TestScript_HookError(t *testing.T) {
	script := construct(t, discard(), `function on_enable() error("cannot start") end`)
	err := script.OnEnable(context.Background())
	assert.ErrorContains(t, err, "cannot start")
}

func TestScript_Closed(t *testing.T) {
	script := construct(t, discard(), greeterScript)
	require.NoError(t, script.Close())
	require.NoError(t, script.Close())

	assert.False(t, script.Provides(addonsdk.CapabilityEnable))
	assert.Error(t, script.OnEnable(context.Background()))
}

func TestLoader_ThroughManager(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "addons", "lua")
	greeter := filepath.Join(pkgDir, "greeter")
	require.NoError(t, os.MkdirAll(greeter, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(greeter, addon.DefaultInfoFile),
		[]byte("main.lua\nGreeter\n0.1.0\nAlice\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(greeter, "main.lua"), []byte(greeterScript), 0o600))

	m := addon.NewManager(addonlua.NewLoader(discard()), &addon.Env{Logger: discard()},
		addon.WithAddonDir(pkgDir),
		addon.WithRunDir(filepath.Join(root, "addons", "run")))
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	require.Len(t, m.Addons(), 1)
	a := m.Addons()[0]
	assert.True(t, a.IsActive())
	assert.Equal(t, "hello from Greeter", a.Settings().String("last_greeting", ""))
	assert.Len(t, a.Threads(ctx), 2)

	m.Destroy(ctx)
	reread := settings.NewStore(filepath.Join(root, "addons", "run", "Greeter", addon.SettingsFile))
	require.NoError(t, reread.Load())
	assert.Equal(t, 1, reread.Int("enable_count", 0))
}
