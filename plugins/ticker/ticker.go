// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package ticker is an example builtin addon. While enabled it runs one
// background worker that counts ticks; the running total survives restarts
// through the addon's settings.
//
// Importing the package registers the addon under the main-entry identifier
// "ticker". A package for it needs only an info entry:
//
//	ticker
//	Ticker
//	1.0.0
//	HoloMUSH Contributors
package ticker

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Main is the main-entry identifier the addon is registered under.
const Main = "ticker"

// Setting keys.
const (
	KeyInterval = "interval_ms"
	KeyTicks    = "ticks"
)

// DefaultInterval is used when the interval setting is absent or invalid.
const DefaultInterval = time.Second

func init() {
	addonsdk.Register(Main, func() (any, error) { return New(), nil })
}

// Ticker counts ticks while enabled.
type Ticker struct {
	mu       sync.Mutex
	meta     addonsdk.Metadata
	settings addonsdk.Settings
	ticks    int
	cancel   context.CancelFunc
	done     chan struct{}
}

var (
	_ addonsdk.InfoReceiver     = (*Ticker)(nil)
	_ addonsdk.SettingsReceiver = (*Ticker)(nil)
	_ addonsdk.Enabler          = (*Ticker)(nil)
	_ addonsdk.Disabler         = (*Ticker)(nil)
	_ addonsdk.ThreadLister     = (*Ticker)(nil)
)

// New creates a stopped ticker.
func New() *Ticker {
	return &Ticker{}
}

// SetAddonInfo implements addonsdk.InfoReceiver.
func (t *Ticker) SetAddonInfo(meta addonsdk.Metadata) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.meta = meta
	return nil
}

// SetSettings implements addonsdk.SettingsReceiver. The stored tick count is
// picked up here.
func (t *Ticker) SetSettings(s addonsdk.Settings) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s
	t.ticks = s.Int(KeyTicks, 0)
	return nil
}

// OnEnable implements addonsdk.Enabler. It starts the tick loop.
func (t *Ticker) OnEnable(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return oops.In("ticker").Errorf("ticker already running")
	}

	interval := DefaultInterval
	if t.settings != nil {
		if ms := t.settings.Int(KeyInterval, 0); ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, interval, t.done)
	return nil
}

// OnDisable implements addonsdk.Disabler. It stops the loop, waits for it to
// exit and stores the tick count.
func (t *Ticker) OnDisable(context.Context) error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settings == nil {
		return nil
	}
	if err := t.settings.Set(KeyTicks, t.ticks); err != nil {
		return oops.In("ticker").Wrapf(err, "store tick count")
	}
	return nil
}

// Threads implements addonsdk.ThreadLister.
func (t *Ticker) Threads() ([]addonsdk.Thread, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return nil, nil
	}
	return []addonsdk.Thread{{Name: "tick-loop"}}, nil
}

// Ticks returns the number of ticks counted so far.
func (t *Ticker) Ticks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

func (t *Ticker) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.mu.Lock()
			t.ticks++
			t.mu.Unlock()
		}
	}
}
