// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Instance is a constructed process addon. It implements every capability
// interface and reports through Provides which ones the child backs.
type Instance struct {
	execPath string
	client   PluginClient
	remote   Remote
	caps     map[addonsdk.Capability]bool

	mu     sync.Mutex
	closed bool
}

var (
	_ addonsdk.Prober            = (*Instance)(nil)
	_ addonsdk.InfoReceiver      = (*Instance)(nil)
	_ addonsdk.SettingsReceiver  = (*Instance)(nil)
	_ addonsdk.DirectoryReceiver = (*Instance)(nil)
	_ addonsdk.Enabler           = (*Instance)(nil)
	_ addonsdk.Disabler          = (*Instance)(nil)
	_ addonsdk.ThreadLister      = (*Instance)(nil)
)

func newInstance(execPath string, client PluginClient, remote Remote, caps []addonsdk.Capability) *Instance {
	set := make(map[addonsdk.Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return &Instance{
		execPath: execPath,
		client:   client,
		remote:   remote,
		caps:     set,
	}
}

// ExecPath returns the executable backing this instance.
func (i *Instance) ExecPath() string { return i.execPath }

// Provides implements addonsdk.Prober.
func (i *Instance) Provides(c addonsdk.Capability) bool {
	return i.caps[c]
}

// SetAddonInfo implements addonsdk.InfoReceiver.
func (i *Instance) SetAddonInfo(meta addonsdk.Metadata) error {
	return i.do(func() error { return i.remote.SetAddonInfo(meta) })
}

// SetSettings implements addonsdk.SettingsReceiver. The child receives a
// snapshot; values it cannot write back stay with the host.
func (i *Instance) SetSettings(s addonsdk.Settings) error {
	values := map[string]string(addonsdk.SnapshotOf(s))
	return i.do(func() error { return i.remote.SetSettings(values) })
}

// SetDirectory implements addonsdk.DirectoryReceiver.
func (i *Instance) SetDirectory(dir string) error {
	return i.do(func() error { return i.remote.SetDirectory(dir) })
}

// OnEnable implements addonsdk.Enabler.
func (i *Instance) OnEnable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.do(i.remote.Enable)
}

// OnDisable implements addonsdk.Disabler.
func (i *Instance) OnDisable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.do(i.remote.Disable)
}

// Threads implements addonsdk.ThreadLister.
func (i *Instance) Threads() ([]addonsdk.Thread, error) {
	var threads []addonsdk.Thread
	err := i.do(func() error {
		var err error
		threads, err = i.remote.Threads()
		return err
	})
	return threads, err
}

// Close kills the child process. It is safe to call more than once.
func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	i.client.Kill()
	return nil
}

// do serializes calls into the child and rejects them after Close.
func (i *Instance) do(call func() error) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return oops.In("process").With("exec", i.execPath).Errorf("addon process has been stopped")
	}
	if err := call(); err != nil {
		return oops.In("process").With("exec", i.execPath).Wrap(err)
	}
	return nil
}
