// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addonsdk

import "context"

// Capability names one optional slot an addon may provide.
type Capability string

// Capabilities the host probes for.
const (
	CapabilityInfo      Capability = "info"
	CapabilitySettings  Capability = "settings"
	CapabilityDirectory Capability = "directory"
	CapabilityEnable    Capability = "enable"
	CapabilityDisable   Capability = "disable"
	CapabilityThreads   Capability = "threads"
)

// AllCapabilities lists every capability in probe order.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityInfo,
		CapabilitySettings,
		CapabilityDirectory,
		CapabilityEnable,
		CapabilityDisable,
		CapabilityThreads,
	}
}

// InfoReceiver receives the addon's own metadata at load time.
type InfoReceiver interface {
	SetAddonInfo(meta Metadata) error
}

// SettingsReceiver receives the addon's private settings store at load time.
// The store stays valid until the addon is unloaded or reloaded.
type SettingsReceiver interface {
	SetSettings(settings Settings) error
}

// DirectoryReceiver receives the path of the addon's private working directory.
type DirectoryReceiver interface {
	SetDirectory(dir string) error
}

// Enabler is invoked after the host has marked the addon active.
// A returned error is reported but does not undo the activation.
type Enabler interface {
	OnEnable(ctx context.Context) error
}

// Disabler is invoked after the host has marked the addon inactive.
// The addon must stop any background work it started.
type Disabler interface {
	OnDisable(ctx context.Context) error
}

// ThreadLister reports the background workers an addon currently runs.
// The result is a point-in-time snapshot; the host never stops or joins them.
type ThreadLister interface {
	Threads() ([]Thread, error)
}

// Prober is implemented by addons whose capabilities are only known at
// runtime, such as scripted or remote addons that implement every capability
// interface but only back some of them. When an addon is a Prober, a
// capability counts as present only if Provides reports it.
type Prober interface {
	Provides(c Capability) bool
}

// Provides reports whether instance offers capability c: it must implement
// the matching interface and, if it is a Prober, claim it.
func Provides(instance any, c Capability) bool {
	var ok bool
	switch c {
	case CapabilityInfo:
		_, ok = instance.(InfoReceiver)
	case CapabilitySettings:
		_, ok = instance.(SettingsReceiver)
	case CapabilityDirectory:
		_, ok = instance.(DirectoryReceiver)
	case CapabilityEnable:
		_, ok = instance.(Enabler)
	case CapabilityDisable:
		_, ok = instance.(Disabler)
	case CapabilityThreads:
		_, ok = instance.(ThreadLister)
	}
	if !ok {
		return false
	}
	if p, isProber := instance.(Prober); isProber {
		return p.Provides(c)
	}
	return true
}
