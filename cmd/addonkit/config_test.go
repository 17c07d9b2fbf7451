// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/addonkit/internal/config"
)

func TestConfigSchema(t *testing.T) {
	out, err := runCLI(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, config.SchemaID)
	assert.Contains(t, out, `"console"`)
}

func TestConfigValidate(t *testing.T) {
	w := newWorkspace(t)

	out, err := runCLI(t, "config", "validate", w.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log:\n  format: xml\n"), 0o600))
	_, err = runCLI(t, "config", "validate", bad)
	assert.Error(t, err)

	_, err = runCLI(t, "config", "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigShow_FlagsOverrideFile(t *testing.T) {
	w := newWorkspace(t)

	out, err := runCLI(t, "--config", w.configPath, "config", "show", "--console-operator", "root")
	require.NoError(t, err)
	assert.Contains(t, out, "log.level:        error")
	assert.Contains(t, out, "console.operator: root")
}
