// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/pkg/addonsdk"
)

const testKind = "fake"

var fixedNow = time.UnixMilli(1_767_225_600_000)

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	mkdirAll(t, filepath.Dir(path))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// writePackage creates a directory package holding only an info entry.
func writePackage(t *testing.T, root, name, info string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	writeFile(t, filepath.Join(dir, addon.DefaultInfoFile), info)
	return dir
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLoader resolves main entries from a fixed table.
type fakeLoader struct {
	kind  string
	mains map[string]addon.Factory
}

func newFakeLoader(mains map[string]addon.Factory) *fakeLoader {
	return &fakeLoader{kind: testKind, mains: mains}
}

func (l *fakeLoader) Kind() string { return l.kind }

func (l *fakeLoader) Resolve(_ context.Context, _ *addon.Package, main string) (addon.Factory, error) {
	f, ok := l.mains[main]
	if !ok {
		return nil, fmt.Errorf("main entry %q not found", main)
	}
	return f, nil
}

// recordingAddon implements every capability and records how it was used.
type recordingAddon struct {
	mu sync.Mutex

	meta     addonsdk.Metadata
	settings addonsdk.Settings
	dir      string

	infoCalls     int
	settingsCalls int
	enables       int
	disables      int
	closed        bool

	infoErr    error
	enableErr  error
	threads    []addonsdk.Thread
	threadsErr error
}

func (r *recordingAddon) SetAddonInfo(meta addonsdk.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infoCalls++
	if r.infoErr != nil {
		return r.infoErr
	}
	r.meta = meta
	return nil
}

func (r *recordingAddon) SetSettings(s addonsdk.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settingsCalls++
	r.settings = s
	return nil
}

func (r *recordingAddon) SetDirectory(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dir = dir
	return nil
}

func (r *recordingAddon) OnEnable(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enables++
	return r.enableErr
}

func (r *recordingAddon) OnDisable(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disables++
	return nil
}

func (r *recordingAddon) Threads() ([]addonsdk.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threads, r.threadsErr
}

func (r *recordingAddon) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingAddon) counts() (enables, disables int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enables, r.disables
}

// bareAddon implements no capability at all.
type bareAddon struct{}

func factoryOf(instance any) addon.Factory {
	return func(context.Context) (any, error) { return instance, nil }
}

// fixture is a manager over temporary directories.
type fixture struct {
	pkgDir  string
	runDir  string
	env     *addon.Env
	manager *addon.Manager
	errors  []event.Event
}

func newFixture(t *testing.T, mains map[string]addon.Factory) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		pkgDir: filepath.Join(root, "addons", testKind),
		runDir: filepath.Join(root, "addons", "run"),
	}
	bus := event.NewBus(discardLogger())
	bus.Subscribe(event.Exception, func(_ context.Context, e event.Event) error {
		f.errors = append(f.errors, e)
		return nil
	})
	f.env = &addon.Env{
		Events: bus,
		Logger: discardLogger(),
		Now:    func() time.Time { return fixedNow },
	}
	f.manager = addon.NewManager(newFakeLoader(mains), f.env,
		addon.WithAddonDir(f.pkgDir),
		addon.WithRunDir(f.runDir))
	return f
}

func (f *fixture) veto(t event.Type) func() {
	return f.env.Events.Subscribe(t, func(context.Context, event.Event) error {
		return errors.New("not now")
	})
}
