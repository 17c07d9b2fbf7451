// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/pkg/addonsdk"
	"github.com/holomush/addonkit/pkg/errutil"
)

// Settings keys read by Manager.Init.
const (
	keyInfoFile = "info_file"
	// DefaultRunDir is the default root of per-addon working directories.
	DefaultRunDir = "addons/run"
)

// PackagesKey returns the settings key holding the package directory of kind.
func PackagesKey(kind string) string { return "manager." + kind + ".packages" }

// RunKey returns the settings key holding the working-directory root of kind.
func RunKey(kind string) string { return "manager." + kind + ".run" }

// DefaultAddonDir returns the default package directory for kind.
func DefaultAddonDir(kind string) string { return filepath.Join("addons", kind) }

// Manager discovers the packages of one kind and owns the lifecycle of the
// addons loaded from them. At most one Addon is registered per Info.
//
// The registry map is safe for concurrent reads, but lifecycle operations
// (load, unload, reload) must be serialized by the caller.
type Manager struct {
	kind     string
	loader   Loader
	env      *Env
	logger   *slog.Logger
	dir      string
	runDir   string
	infoFile string

	addons map[Key]*Addon
	mu     sync.RWMutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAddonDir overrides the package directory. Init still lets the service
// settings take precedence.
func WithAddonDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.dir = dir
	}
}

// WithRunDir overrides the working-directory root.
func WithRunDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.runDir = dir
	}
}

// WithInfoFile overrides the metadata entry name.
func WithInfoFile(name string) ManagerOption {
	return func(m *Manager) {
		m.infoFile = name
	}
}

// NewManager creates a manager for the loader's kind.
func NewManager(loader Loader, env *Env, opts ...ManagerOption) *Manager {
	env = env.normalized()
	kind := loader.Kind()
	m := &Manager{
		kind:     kind,
		loader:   loader,
		env:      env,
		logger:   env.Logger.With("kind", kind),
		dir:      DefaultAddonDir(kind),
		runDir:   DefaultRunDir,
		infoFile: DefaultInfoFile,
		addons:   make(map[Key]*Addon),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind returns the manager kind.
func (m *Manager) Kind() string { return m.kind }

// AddonDir returns the package directory.
func (m *Manager) AddonDir() string { return m.dir }

// RunDir returns the working-directory root.
func (m *Manager) RunDir() string { return m.runDir }

// InfoFile returns the metadata entry name.
func (m *Manager) InfoFile() string { return m.infoFile }

// Init reads the directory layout from the service settings, makes sure both
// directories exist and performs a full Reload. Only a package directory that
// cannot be created is an error; a missing working-directory root is logged.
func (m *Manager) Init(ctx context.Context) error {
	m.dir = m.env.settingString(PackagesKey(m.kind), m.dir)
	m.runDir = m.env.settingString(RunKey(m.kind), m.runDir)
	m.infoFile = m.env.settingString(keyInfoFile, m.infoFile)

	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return oops.In("addon").
			With("kind", m.kind).
			With("dir", m.dir).
			Wrapf(err, "create package directory")
	}
	m.logger.DebugContext(ctx, "package directory ready", "dir", m.dir)

	if err := os.MkdirAll(m.runDir, 0o750); err != nil {
		m.logger.WarnContext(ctx, "could not create working directory root",
			"dir", m.runDir,
			"error", err)
	} else {
		m.logger.DebugContext(ctx, "working directory root ready", "dir", m.runDir)
	}

	m.Reload(ctx)
	return nil
}

// LoadInfo reads the metadata entry of the package at path and resolves its
// main entry. Failures return an INFO_LOAD_FAILED error; the cause is also
// reported on the event bus.
func (m *Manager) LoadInfo(ctx context.Context, path string) (*Info, error) {
	ctx, span := m.env.Tracer.Start(ctx, "Manager.LoadInfo", trace.WithAttributes(
		attribute.String("addon.kind", m.kind),
		attribute.String("addon.package", path),
	))
	defer span.End()

	info, err := m.readInfo(ctx, path)
	if err != nil {
		span.RecordError(err)
		m.logger.WarnContext(ctx, "unable to load addon info", "package", path, "error", err)
		m.env.Events.Report(ctx, event.NewException(m.source(), addonsdk.Metadata{Package: path, Kind: m.kind}, err))
		return nil, ErrInfoLoad(path, err)
	}
	return info, nil
}

func (m *Manager) readInfo(ctx context.Context, path string) (*Info, error) {
	pkg, err := OpenPackage(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := pkg.Close(); cerr != nil {
			m.logger.DebugContext(ctx, "close package", "package", path, "error", cerr)
		}
	}()

	f, err := pkg.FS.Open(m.infoFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", m.infoFile, err)
	}
	meta, err := ParseInfoEntry(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	meta.Package = path
	meta.Kind = m.kind

	factory, err := m.loader.Resolve(ctx, pkg, meta.Main)
	if err != nil {
		return nil, fmt.Errorf("resolve main entry %q: %w", meta.Main, err)
	}
	return NewInfo(meta, factory), nil
}

// LoadAddon constructs and registers the addon described by info. Loading an
// already registered Info returns the existing Addon. The new addon starts
// inactive.
func (m *Manager) LoadAddon(ctx context.Context, info *Info) (*Addon, error) {
	if info.Kind() != m.kind {
		return nil, ErrKindMismatch(info, m.kind)
	}
	if a := m.GetAddon(info); a != nil {
		return a, nil
	}

	ctx, span := m.env.Tracer.Start(ctx, "Manager.LoadAddon", trace.WithAttributes(
		attribute.String("addon.name", info.Name()),
		attribute.String("addon.kind", m.kind),
	))
	defer span.End()

	if err := m.env.Events.Dispatch(ctx, event.New(event.AddonLoad, m.source(), info.Metadata())); err != nil {
		span.RecordError(err)
		m.env.Metrics.transition(m.kind, transitionLoad, resultVetoed)
		return nil, ErrLoadDenied(info, err)
	}

	instance, err := construct(ctx, info)
	if err != nil {
		span.RecordError(err)
		m.logger.DebugContext(ctx, "addon construction failed", "addon", info.Name(), "error", err)
		m.env.Metrics.transition(m.kind, transitionLoad, resultFailed)
		return nil, ErrConstructionFailed(info, err)
	}

	dir := filepath.Join(m.runDir, dirName(info.Name()))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		m.logger.DebugContext(ctx, "could not create addon directory",
			"addon", info.Name(),
			"dir", dir,
			"error", err)
	}

	a := newAddon(info, instance, dir, m.env)
	a.init(ctx)

	m.mu.Lock()
	m.addons[info.Key()] = a
	n := len(m.addons)
	m.mu.Unlock()

	m.env.Metrics.setLoaded(m.kind, n)
	m.env.Metrics.transition(m.kind, transitionLoad, resultOK)
	m.logger.InfoContext(ctx, "addon loaded", "addon", info.Name(), "version", info.Version())
	return a, nil
}

// GetAddon returns the registered Addon for info, or nil.
func (m *Manager) GetAddon(info *Info) *Addon {
	if info == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addons[info.Key()]
}

// Unload destroys and deregisters the addon for info. Unloading an Info that
// is not registered does nothing. If an AddonUnload listener vetoes, the
// addon stays registered and the veto is returned.
func (m *Manager) Unload(ctx context.Context, info *Info) error {
	a := m.GetAddon(info)
	if a == nil {
		return nil
	}

	ctx, span := m.env.Tracer.Start(ctx, "Manager.Unload", trace.WithAttributes(
		attribute.String("addon.name", info.Name()),
		attribute.String("addon.kind", m.kind),
	))
	defer span.End()

	if err := m.env.Events.Dispatch(ctx, event.New(event.AddonUnload, m.source(), info.Metadata())); err != nil {
		span.RecordError(err)
		m.env.Metrics.transition(m.kind, transitionUnload, resultVetoed)
		return err
	}

	m.discard(ctx, a)

	m.mu.Lock()
	delete(m.addons, info.Key())
	n := len(m.addons)
	m.mu.Unlock()

	m.env.Metrics.setLoaded(m.kind, n)
	m.env.Metrics.transition(m.kind, transitionUnload, resultOK)
	m.logger.InfoContext(ctx, "addon unloaded", "addon", info.Name())
	return nil
}

// UnloadAll destroys and deregisters every addon without consulting
// listeners.
func (m *Manager) UnloadAll(ctx context.Context) {
	m.mu.Lock()
	addons := m.addons
	m.addons = make(map[Key]*Addon)
	m.mu.Unlock()

	for _, a := range sortAddons(addons) {
		m.discard(ctx, a)
		m.env.Metrics.transition(m.kind, transitionUnload, resultOK)
	}
	m.env.Metrics.setLoaded(m.kind, 0)
}

// Reload unloads everything, rescans the package directory and loads and
// enables every package found. Packages that fail to parse or load are
// skipped.
func (m *Manager) Reload(ctx context.Context) {
	ctx, span := m.env.Tracer.Start(ctx, "Manager.Reload", trace.WithAttributes(
		attribute.String("addon.kind", m.kind),
	))
	defer span.End()

	m.UnloadAll(ctx)

	infos, err := m.Discover(ctx)
	if err != nil {
		span.RecordError(err)
		m.logger.WarnContext(ctx, "unable to scan package directory", "dir", m.dir, "error", err)
		return
	}

	for _, info := range infos {
		a, err := m.LoadAddon(ctx, info)
		if err != nil {
			m.logger.DebugContext(ctx, "skipping addon", "addon", info.Name(), "error", err)
			continue
		}
		a.Enable(ctx)
	}
	m.env.Metrics.transition(m.kind, transitionReload, resultOK)
}

// ReloadAddon restarts a single addon. A registered addon is destroyed,
// re-initialized and enabled in place, keeping its instance. Otherwise the
// addon is loaded and enabled.
func (m *Manager) ReloadAddon(ctx context.Context, info *Info) (*Addon, error) {
	if a := m.GetAddon(info); a != nil {
		a.Destroy(ctx)
		a.init(ctx)
		a.Enable(ctx)
		m.env.Metrics.transition(m.kind, transitionReload, resultOK)
		return a, nil
	}

	a, err := m.LoadAddon(ctx, info)
	if err != nil {
		errutil.LogWarn(ctx, m.logger, "unable to load addon", err, "addon", info.Name())
		m.env.Metrics.transition(m.kind, transitionReload, resultFailed)
		return nil, err
	}
	a.Enable(ctx)
	m.env.Metrics.transition(m.kind, transitionReload, resultOK)
	return a, nil
}

// AddonInfo returns the descriptors of every registered addon, sorted by
// name and version.
func (m *Manager) AddonInfo() []*Info {
	addons := m.Addons()
	out := make([]*Info, len(addons))
	for i, a := range addons {
		out[i] = a.Info()
	}
	return out
}

// Addons returns every registered addon, sorted by name and version.
func (m *Manager) Addons() []*Addon {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortAddons(m.addons)
}

// Discover lists the packages in the package directory and parses their
// metadata. Entries whose metadata cannot be loaded are skipped.
func (m *Manager) Discover(ctx context.Context) ([]*Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, oops.In("addon").With("dir", m.dir).Wrapf(err, "read package directory")
	}

	infos := make([]*Info, 0, len(entries))
	for _, entry := range entries {
		info, err := m.LoadInfo(ctx, filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Destroy unloads every addon.
func (m *Manager) Destroy(ctx context.Context) {
	m.UnloadAll(ctx)
}

// discard destroys a wrapper that is leaving the registry and closes its
// instance when it holds resources.
func (m *Manager) discard(ctx context.Context, a *Addon) {
	a.Destroy(ctx)
	if c, ok := a.Instance().(io.Closer); ok {
		if err := c.Close(); err != nil {
			m.logger.WarnContext(ctx, "close addon instance", "addon", a.Info().Name(), "error", err)
		}
	}
}

func (m *Manager) source() string {
	return "addon.manager." + m.kind
}

// construct runs the factory, turning a nil factory, a nil instance or a
// panic into an error.
func construct(ctx context.Context, info *Info) (instance any, err error) {
	if info.factory == nil {
		return nil, fmt.Errorf("no constructor for main entry %q", info.Main())
	}
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, fmt.Errorf("constructor panic: %v", r)
		}
	}()

	instance, err = info.factory(ctx)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("constructor for main entry %q returned nil", info.Main())
	}
	return instance, nil
}

// dirName maps an addon name onto a single safe path element.
func dirName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" || clean == "." || clean == ".." {
		return "_"
	}
	return clean
}

func sortAddons(addons map[Key]*Addon) []*Addon {
	out := make([]*Addon, 0, len(addons))
	for _, a := range addons {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Info(), out[j].Info()
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		if a.Version() != b.Version() {
			return a.Version() < b.Version()
		}
		return a.Package() < b.Package()
	})
	return out
}
