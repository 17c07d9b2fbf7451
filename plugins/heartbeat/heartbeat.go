// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// BeatFile is written into the working directory on every beat.
const BeatFile = "heartbeat"

const (
	keyInterval     = "interval_ms"
	defaultInterval = 5 * time.Second
)

type heartbeat struct {
	mu       sync.Mutex
	name     string
	dir      string
	interval time.Duration
	beats    int
	cancel   context.CancelFunc
	done     chan struct{}
	now      func() time.Time
}

var (
	_ addonsdk.InfoReceiver      = (*heartbeat)(nil)
	_ addonsdk.SettingsReceiver  = (*heartbeat)(nil)
	_ addonsdk.DirectoryReceiver = (*heartbeat)(nil)
	_ addonsdk.Enabler           = (*heartbeat)(nil)
	_ addonsdk.Disabler          = (*heartbeat)(nil)
	_ addonsdk.ThreadLister      = (*heartbeat)(nil)
)

func newHeartbeat() *heartbeat {
	return &heartbeat{interval: defaultInterval, now: time.Now}
}

func (h *heartbeat) SetAddonInfo(meta addonsdk.Metadata) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.name = meta.Name
	return nil
}

func (h *heartbeat) SetSettings(s addonsdk.Settings) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ms := s.Int(keyInterval, 0); ms > 0 {
		h.interval = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func (h *heartbeat) SetDirectory(dir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dir = dir
	return nil
}

func (h *heartbeat) OnEnable(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dir == "" {
		return oops.In("heartbeat").Errorf("no working directory")
	}
	if h.cancel != nil {
		return nil
	}
	if err := h.beatLocked(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.run(ctx, h.interval, h.done)
	return nil
}

func (h *heartbeat) OnDisable(context.Context) error {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (h *heartbeat) Threads() ([]addonsdk.Thread, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel == nil {
		return nil, nil
	}
	return []addonsdk.Thread{{Name: "beat", ID: strconv.Itoa(os.Getpid())}}, nil
}

func (h *heartbeat) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			h.mu.Lock()
			// A failed write is retried on the next beat.
			_ = h.beatLocked()
			h.mu.Unlock()
		}
	}
}

func (h *heartbeat) beatLocked() error {
	h.beats++
	line := h.now().UTC().Format(time.RFC3339Nano) + " " + strconv.Itoa(h.beats) + "\n"
	path := filepath.Join(h.dir, BeatFile)
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		return oops.In("heartbeat").With("path", path).Wrapf(err, "write beat")
	}
	return nil
}
