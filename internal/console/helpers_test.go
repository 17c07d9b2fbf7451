// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/internal/addon/builtin"
	"github.com/holomush/addonkit/internal/console"
	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/internal/permission"
	"github.com/holomush/addonkit/internal/settings"
	"github.com/holomush/addonkit/pkg/addonsdk"
)

const operator = "admin"

var fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// workerAddon reports one thread and can refuse to enable.
type workerAddon struct {
	mu      sync.Mutex
	enables int
}

func (w *workerAddon) OnEnable(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enables++
	return nil
}

func (w *workerAddon) OnDisable(context.Context) error { return nil }

func (w *workerAddon) Threads() ([]addonsdk.Thread, error) {
	return []addonsdk.Thread{{Name: "worker"}}, nil
}

// harness is a started service with a console in front of it.
type harness struct {
	t          *testing.T
	root       string
	pkgDir     string
	svc        *addon.Service
	events     *event.Bus
	enforcer   *permission.Enforcer
	dispatcher *console.Dispatcher
}

func newHarness(t *testing.T, packages map[string]string) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{t: t, root: root, pkgDir: filepath.Join(root, "addons", builtin.Kind)}

	for name, info := range packages {
		dir := filepath.Join(h.pkgDir, name)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, addon.DefaultInfoFile), []byte(info), 0o600))
	}

	lookup := func(main string) (addonsdk.Constructor, bool) {
		switch main {
		case "worker":
			return func() (any, error) { return &workerAddon{}, nil }, true
		case "broken":
			return func() (any, error) { return nil, errors.New("boom") }, true
		}
		return nil, false
	}

	h.events = event.NewBus(discard())
	env := &addon.Env{
		Settings: settings.NewStore(filepath.Join(root, "config", "addon.yaml")),
		Events:   h.events,
		Logger:   discard(),
		Now:      func() time.Time { return fixedNow },
	}
	h.svc = addon.NewService(env,
		addon.WithKind(builtin.Kind,
			func(*addon.Env) (addon.Loader, error) { return builtin.NewLoaderWithLookup(lookup), nil },
			addon.WithAddonDir(h.pkgDir),
			addon.WithRunDir(filepath.Join(root, "addons", "run"))))
	require.NoError(t, h.svc.Start(context.Background()))

	h.enforcer = permission.NewEnforcer()
	require.NoError(t, h.enforcer.Grant(operator, []string{"addon", "addon.**"}))

	d, err := console.NewDispatcher(console.NewDefaultRegistry(), h.enforcer, console.WithLogger(discard()))
	require.NoError(t, err)
	h.dispatcher = d
	return h
}

// run dispatches line as the operator and returns its output.
func (h *harness) run(line string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	err := h.dispatcher.Dispatch(context.Background(), line, &console.Execution{
		Operator: operator,
		Output:   &out,
		Service:  h.svc,
	})
	return out.String(), err
}

func (h *harness) mustRun(line string) string {
	h.t.Helper()
	out, err := h.run(line)
	require.NoError(h.t, err, "output: %s", out)
	return out
}

func (h *harness) addon(name string) *addon.Addon {
	h.t.Helper()
	for _, a := range h.svc.Manager(builtin.Kind).Addons() {
		if a.Info().Name() == name {
			return a
		}
	}
	return nil
}
