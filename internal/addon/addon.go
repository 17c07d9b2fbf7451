// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/internal/settings"
	"github.com/holomush/addonkit/pkg/addonsdk"
	"github.com/holomush/addonkit/pkg/errutil"
)

// SettingsFile is the name of an addon's private settings document inside
// its working directory.
const SettingsFile = "settings.yaml"

// inactiveTime is the activation time of an addon that is not active.
const inactiveTime int64 = -1

// Addon wraps one live addon instance together with its private settings,
// its working directory and its activation state.
//
// Activation state is guarded by a mutex so it can be read from any
// goroutine. Lifecycle calls (Enable, Disable, Destroy) are expected to come
// from a single administrative goroutine.
type Addon struct {
	info     *Info
	instance any
	dir      string
	env      *Env
	logger   *slog.Logger

	settings *settings.Store

	mu             sync.RWMutex
	active         bool
	activationTime int64
}

func newAddon(info *Info, instance any, dir string, env *Env) *Addon {
	return &Addon{
		info:           info,
		instance:       instance,
		dir:            dir,
		env:            env,
		logger:         env.Logger.With("addon", info.Name(), "kind", info.Kind()),
		activationTime: inactiveTime,
	}
}

// Info returns the descriptor the addon was loaded from.
func (a *Addon) Info() *Info { return a.info }

// Instance returns the constructed main object.
func (a *Addon) Instance() any { return a.instance }

// Dir returns the addon's private working directory.
func (a *Addon) Dir() string { return a.dir }

// Settings returns the addon's private settings store, or nil before init.
func (a *Addon) Settings() *settings.Store { return a.settings }

// IsActive reports whether the addon is enabled.
func (a *Addon) IsActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// ActivationTime returns the unix time in milliseconds at which the addon
// was last enabled, or -1 while it is inactive.
func (a *Addon) ActivationTime() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activationTime
}

// init loads the private settings store and hands the addon whatever host
// context it accepts. Failures are reported and never abort the load.
func (a *Addon) init(ctx context.Context) {
	store := settings.NewStore(filepath.Join(a.dir, SettingsFile))
	if err := store.Load(); err != nil {
		a.fail(ctx, "settings", err)
	}
	a.settings = store

	if addonsdk.Provides(a.instance, addonsdk.CapabilityInfo) {
		recv, _ := a.instance.(addonsdk.InfoReceiver)
		_ = a.invoke(ctx, addonsdk.CapabilityInfo, func() error {
			return recv.SetAddonInfo(a.info.Metadata())
		})
	}
	if addonsdk.Provides(a.instance, addonsdk.CapabilitySettings) {
		recv, _ := a.instance.(addonsdk.SettingsReceiver)
		_ = a.invoke(ctx, addonsdk.CapabilitySettings, func() error {
			return recv.SetSettings(store)
		})
	}
	if addonsdk.Provides(a.instance, addonsdk.CapabilityDirectory) {
		recv, _ := a.instance.(addonsdk.DirectoryReceiver)
		_ = a.invoke(ctx, addonsdk.CapabilityDirectory, func() error {
			return recv.SetDirectory(a.dir)
		})
	}
}

// Enable activates the addon. An AddonEnable listener may veto, in which case
// Enable returns false and nothing changes. Otherwise the addon is marked
// active and its enable hook runs; the result reports whether that hook ran
// and succeeded. An addon without an enable hook is still activated but
// Enable returns false, as it does when the hook fails. Neither case reverts
// the activation.
func (a *Addon) Enable(ctx context.Context) bool {
	ctx, span := a.env.Tracer.Start(ctx, "Addon.Enable", a.spanAttrs())
	defer span.End()

	if err := a.env.Events.Dispatch(ctx, event.New(event.AddonEnable, a.source(), a.info.Metadata())); err != nil {
		a.logger.InfoContext(ctx, "addon enable vetoed", "reason", err)
		span.RecordError(err)
		a.env.Metrics.transition(a.info.Kind(), transitionEnable, resultVetoed)
		return false
	}

	a.mu.Lock()
	wasActive := a.active
	a.active = true
	a.activationTime = a.env.Now().UnixMilli()
	a.mu.Unlock()
	if !wasActive {
		a.env.Metrics.addActive(a.info.Kind(), 1)
	}

	ok := false
	if addonsdk.Provides(a.instance, addonsdk.CapabilityEnable) {
		hook, _ := a.instance.(addonsdk.Enabler)
		ok = a.invoke(ctx, addonsdk.CapabilityEnable, func() error {
			return hook.OnEnable(ctx)
		}) == nil
	}

	a.env.Metrics.transition(a.info.Kind(), transitionEnable, resultLabel(ok))
	a.logger.InfoContext(ctx, "addon enabled", "hook_ok", ok)
	return ok
}

// Disable deactivates the addon with the same veto and hook rules as Enable:
// an addon without a disable hook is deactivated and Disable returns false.
// The addon's disable hook is responsible for stopping its own workers.
func (a *Addon) Disable(ctx context.Context) bool {
	ctx, span := a.env.Tracer.Start(ctx, "Addon.Disable", a.spanAttrs())
	defer span.End()

	if err := a.env.Events.Dispatch(ctx, event.New(event.AddonDisable, a.source(), a.info.Metadata())); err != nil {
		a.logger.InfoContext(ctx, "addon disable vetoed", "reason", err)
		span.RecordError(err)
		a.env.Metrics.transition(a.info.Kind(), transitionDisable, resultVetoed)
		return false
	}

	a.mu.Lock()
	wasActive := a.active
	a.active = false
	a.activationTime = inactiveTime
	a.mu.Unlock()
	if wasActive {
		a.env.Metrics.addActive(a.info.Kind(), -1)
	}

	ok := false
	if addonsdk.Provides(a.instance, addonsdk.CapabilityDisable) {
		hook, _ := a.instance.(addonsdk.Disabler)
		ok = a.invoke(ctx, addonsdk.CapabilityDisable, func() error {
			return hook.OnDisable(ctx)
		}) == nil
	}

	a.env.Metrics.transition(a.info.Kind(), transitionDisable, resultLabel(ok))
	a.logger.InfoContext(ctx, "addon disabled", "hook_ok", ok)
	return ok
}

// Threads returns the addon's own report of its background workers, each
// stamped with the addon's name as owner. Addons without the capability, or
// whose report fails, contribute an empty list.
func (a *Addon) Threads(ctx context.Context) []addonsdk.Thread {
	if !addonsdk.Provides(a.instance, addonsdk.CapabilityThreads) {
		return []addonsdk.Thread{}
	}
	lister, _ := a.instance.(addonsdk.ThreadLister)

	var threads []addonsdk.Thread
	err := a.invoke(ctx, addonsdk.CapabilityThreads, func() error {
		var err error
		threads, err = lister.Threads()
		return err
	})
	if err != nil {
		return []addonsdk.Thread{}
	}

	out := make([]addonsdk.Thread, 0, len(threads))
	for _, t := range threads {
		t.Owner = a.info.Name()
		out = append(out, t)
	}
	return out
}

// Destroy disables the addon if it is active and releases its settings
// store. The working directory is left in place.
func (a *Addon) Destroy(ctx context.Context) {
	if a.IsActive() {
		a.Disable(ctx)
	}
	if a.settings == nil {
		return
	}
	if err := a.settings.Release(); err != nil {
		a.fail(ctx, "settings", err)
	}
	a.settings = nil
}

// String returns the descriptor's display form.
func (a *Addon) String() string {
	return a.info.String()
}

// invoke runs an addon callback, converting a panic into an error. Any
// failure is logged and reported as an exception event.
func (a *Addon) invoke(ctx context.Context, c addonsdk.Capability, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			a.fail(ctx, string(c), err)
		}
	}()
	return fn()
}

func (a *Addon) fail(ctx context.Context, capability string, cause error) {
	err := ErrCapability(a.info, capability, cause)
	errutil.LogWarn(ctx, a.logger, "addon capability failed", err)
	a.env.Events.Report(ctx, event.NewException(a.source(), a.info.Metadata(), err))
}

func (a *Addon) source() string {
	return "addon." + a.info.Kind()
}

func (a *Addon) spanAttrs() trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("addon.name", a.info.Name()),
		attribute.String("addon.kind", a.info.Kind()),
	)
}

func resultLabel(ok bool) string {
	if ok {
		return resultOK
	}
	return resultFailed
}
