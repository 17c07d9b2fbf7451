// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/plugins/ticker"
)

const tickerInfo = ticker.Main + "\nTicker\n1.0.0\nHoloMUSH Contributors\n"

// workspace is a temporary host layout: a config file, a service settings
// file and one builtin ticker package.
type workspace struct {
	root       string
	configPath string
	packageDir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	w := &workspace{
		root:       root,
		configPath: filepath.Join(root, "config.yaml"),
		packageDir: filepath.Join(root, "addons", "builtin", "ticker"),
	}

	require.NoError(t, os.MkdirAll(w.packageDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(w.packageDir, addon.DefaultInfoFile), []byte(tickerInfo), 0o600))

	settingsPath := filepath.Join(root, "addon.yaml")
	settingsYAML := "manager:\n" +
		"  builtin:\n" +
		"    packages: " + filepath.Join(root, "addons", "builtin") + "\n" +
		"    run: " + filepath.Join(root, "addons", "run") + "\n"
	require.NoError(t, os.WriteFile(settingsPath, []byte(settingsYAML), 0o600))

	configYAML := "log:\n  level: error\naddon:\n  settings: " + settingsPath + "\n"
	require.NoError(t, os.WriteFile(w.configPath, []byte(configYAML), 0o600))

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	configFile = ""
	t.Cleanup(func() { configFile = "" })
	return w
}

// syncBuffer is a bytes.Buffer safe for one writer goroutine and a polling
// reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
