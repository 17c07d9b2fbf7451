// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/internal/settings"
	"github.com/holomush/addonkit/pkg/addonsdk"
	"github.com/holomush/addonkit/pkg/errutil"
)

// DefaultSettingsPath is the default location of the service settings file.
const DefaultSettingsPath = "config/addon.yaml"

// DefaultManagers lists the kinds started when the settings name none.
var DefaultManagers = []string{"builtin"}

const keyManagers = "managers"

// Service owns one Manager per kind and exposes a single surface for loading,
// unloading and querying addons across all of them.
//
// Kinds are registered up front through RegisterKind; a kind's manager is
// constructed the first time it is requested, either by Start or by
// GetManager.
type Service struct {
	env    *Env
	logger *slog.Logger

	kinds    map[string]LoaderFactory
	opts     map[string][]ManagerOption
	managers map[string]*Manager
	mu       sync.RWMutex

	settingsMu     sync.Mutex
	settingsLoaded bool

	ready atomic.Bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithKind registers a loader factory for kind, with options applied to the
// kind's manager when it is constructed.
func WithKind(kind string, factory LoaderFactory, opts ...ManagerOption) ServiceOption {
	return func(s *Service) {
		s.RegisterKind(kind, factory, opts...)
	}
}

// NewService creates a service. When env carries no settings store, one is
// created at DefaultSettingsPath.
func NewService(env *Env, opts ...ServiceOption) *Service {
	env = env.normalized()
	if env.Settings == nil {
		env.Settings = settings.NewStore(DefaultSettingsPath)
	}
	s := &Service{
		env:      env,
		logger:   env.Logger.With("component", "addon_service"),
		kinds:    make(map[string]LoaderFactory),
		opts:     make(map[string][]ManagerOption),
		managers: make(map[string]*Manager),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Env returns the environment shared with managers and addons.
func (s *Service) Env() *Env { return s.env }

// Settings returns the service settings store.
func (s *Service) Settings() *settings.Store { return s.env.Settings }

// Events returns the event bus.
func (s *Service) Events() *event.Bus { return s.env.Events }

// RegisterKind makes kind available to GetManager. Registering a kind again
// replaces its factory for managers constructed afterwards.
func (s *Service) RegisterKind(kind string, factory LoaderFactory, opts ...ManagerOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[kind] = factory
	s.opts[kind] = opts
}

// Kinds returns every registered kind, sorted.
func (s *Service) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.kinds)
}

// GetManager returns the manager for kind, constructing and initializing it
// on first use. The service settings are loaded before the first manager is
// built if Start has not loaded them yet. A kind without a registered factory fails with UNKNOWN_KIND;
// construction or Init failure fails with MANAGER_INIT_FAILED and is also
// reported on the event bus. A failed manager is not retained.
func (s *Service) GetManager(ctx context.Context, kind string) (*Manager, error) {
	if m := s.Manager(kind); m != nil {
		return m, nil
	}

	s.mu.RLock()
	factory, ok := s.kinds[kind]
	opts := s.opts[kind]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownKind(kind)
	}

	m, err := s.newManager(ctx, kind, factory, opts)
	if err != nil {
		err = ErrManagerInit(kind, err)
		errutil.LogError(s.logger, "addon manager cannot be initiated", err)
		s.env.Events.Report(ctx, event.NewException("addon.service", addonsdk.Metadata{Kind: kind}, err))
		return nil, err
	}

	s.mu.Lock()
	s.managers[kind] = m
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "addon manager started", "kind", kind, "dir", m.AddonDir())
	return m, nil
}

func (s *Service) newManager(ctx context.Context, kind string, factory LoaderFactory, opts []ManagerOption) (m *Manager, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, oops.Errorf("manager construction panic: %v", r)
		}
	}()

	if err := s.ensureSettings(); err != nil {
		return nil, err
	}

	loader, err := factory(s.env)
	if err != nil {
		return nil, err
	}
	if loader.Kind() != kind {
		return nil, oops.With("loader_kind", loader.Kind()).Errorf("loader serves kind %q, not %q", loader.Kind(), kind)
	}

	m = NewManager(loader, s.env, opts...)
	if err := m.Init(ctx); err != nil {
		m.Destroy(ctx)
		return nil, err
	}
	return m, nil
}

// Manager returns the instantiated manager for kind, or nil. It never
// constructs one.
func (s *Service) Manager(kind string) *Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.managers[kind]
}

// HasManager reports whether a manager for kind is instantiated.
func (s *Service) HasManager(kind string) bool {
	return s.Manager(kind) != nil
}

// Managers returns the kinds of all instantiated managers, sorted.
func (s *Service) Managers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.managers)
}

// RemoveManager destroys and drops the manager for kind, if any.
func (s *Service) RemoveManager(ctx context.Context, kind string) {
	s.mu.Lock()
	m, ok := s.managers[kind]
	delete(s.managers, kind)
	s.mu.Unlock()

	if !ok {
		return
	}
	m.Destroy(ctx)
	s.logger.InfoContext(ctx, "addon manager removed", "kind", kind)
}

// GetAddon returns the registered addon for info. It returns nil when the
// owning manager is not instantiated.
func (s *Service) GetAddon(info *Info) *Addon {
	m := s.Manager(info.Kind())
	if m == nil {
		return nil
	}
	return m.GetAddon(info)
}

// LoadAddon loads info through its kind's manager, instantiating the manager
// if needed. Load failures (denied, construction, kind mismatch) yield a nil
// Addon and a nil error; only manager failures are returned.
func (s *Service) LoadAddon(ctx context.Context, info *Info) (*Addon, error) {
	m, err := s.GetManager(ctx, info.Kind())
	if err != nil {
		return nil, err
	}

	a, err := m.LoadAddon(ctx, info)
	if err != nil {
		if IsLoadError(err) {
			errutil.LogWarn(ctx, s.logger, "unable to load addon", err, "addon", info.Name())
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// UnloadAddon unloads info if its manager is instantiated.
func (s *Service) UnloadAddon(ctx context.Context, info *Info) error {
	m := s.Manager(info.Kind())
	if m == nil {
		return nil
	}
	return m.Unload(ctx, info)
}

// Start loads the service settings and instantiates the configured managers.
// Kinds without a registered factory are logged and skipped; a manager that
// fails to initialize aborts Start.
func (s *Service) Start(ctx context.Context) error {
	if err := s.loadSettings(); err != nil {
		return err
	}

	for _, kind := range s.startKinds() {
		if _, err := s.GetManager(ctx, kind); err != nil {
			if HasCode(err, CodeUnknownKind) {
				s.logger.WarnContext(ctx, "unknown addon manager kind", "kind", kind)
				continue
			}
			return err
		}
	}

	s.ready.Store(true)
	return nil
}

// loadSettings (re)reads the settings file.
func (s *Service) loadSettings() error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	return s.loadSettingsLocked()
}

// ensureSettings reads the settings file unless it has already been read.
func (s *Service) ensureSettings() error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	if s.settingsLoaded {
		return nil
	}
	return s.loadSettingsLocked()
}

func (s *Service) loadSettingsLocked() error {
	if err := s.env.Settings.Load(); err != nil {
		s.settingsLoaded = false
		return oops.In("addon").Wrapf(err, "load addon service settings")
	}
	s.settingsLoaded = true
	return nil
}

// startKinds reads the managers setting, which may be a list or a single
// string.
func (s *Service) startKinds() []string {
	st := s.env.Settings
	if !st.Exists(keyManagers) {
		return DefaultManagers
	}
	if list := st.Strings(keyManagers, nil); len(list) > 0 {
		return list
	}
	if one := strings.TrimSpace(st.String(keyManagers, "")); one != "" {
		return []string{one}
	}
	return nil
}

// Stop destroys every manager, cascading to all of their addons, and
// releases the service settings.
func (s *Service) Stop(ctx context.Context) error {
	s.ready.Store(false)

	for _, kind := range s.Managers() {
		s.RemoveManager(ctx, kind)
	}

	s.settingsMu.Lock()
	s.settingsLoaded = false
	s.settingsMu.Unlock()

	if err := s.env.Settings.Release(); err != nil {
		return oops.In("addon").Wrapf(err, "release addon service settings")
	}
	return nil
}

// Ready reports whether Start has completed and Stop has not been called.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// Threads returns the workers of every active addon across all instantiated
// managers. Inactive addons contribute nothing.
func (s *Service) Threads(ctx context.Context) []addonsdk.Thread {
	seen := make(map[addonsdk.Thread]struct{})
	var out []addonsdk.Thread

	for _, kind := range s.Managers() {
		m := s.Manager(kind)
		if m == nil {
			continue
		}
		for _, a := range m.Addons() {
			if !a.IsActive() {
				continue
			}
			for _, t := range a.Threads(ctx) {
				if _, dup := seen[t]; dup {
					continue
				}
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
