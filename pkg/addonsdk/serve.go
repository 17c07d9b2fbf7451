// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addonsdk

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"
)

// PluginName is the name under which process addons are dispensed.
const PluginName = "addon"

// HandshakeConfig is the go-plugin handshake shared by the host and process
// addons. Do not copy it; a mismatch makes the host refuse the child.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ADDONKIT_ADDON",
	MagicCookieValue: "addonkit-v1",
}

// Serve runs impl as a process addon. It must be called from main and blocks
// until the host kills the process. impl may implement any subset of the
// capability interfaces; settings arrive as a read-only Snapshot.
func Serve(impl any) {
	if impl == nil {
		panic("addonsdk: Serve called with nil addon")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			PluginName: &RPCPlugin{Impl: impl},
		},
	})
}

// RPCPlugin implements go-plugin's net/rpc Plugin for addons.
type RPCPlugin struct {
	// Impl is the addon instance. Only used on the addon side.
	Impl any
}

// Server returns the RPC receiver (called in the addon process).
func (p *RPCPlugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	if p.Impl == nil {
		return nil, errors.New("addonsdk: addon implementation is nil")
	}
	return &RPCServer{impl: p.Impl}, nil
}

// Client returns the host-side stub (called in the host process).
func (p *RPCPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// Wire types. net/rpc encodes with gob, which rejects structs without
// exported fields, so even argument-less calls carry one.

// CallArgs is the argument of calls that need no input.
type CallArgs struct {
	Seq int
}

// Ack is the reply of calls that return nothing.
type Ack struct {
	OK bool
}

// ProbeReply lists the capabilities an addon provides.
type ProbeReply struct {
	Capabilities []Capability
}

// InfoArgs carries metadata to the addon.
type InfoArgs struct {
	Info Metadata
}

// SettingsArgs carries a settings snapshot to the addon.
type SettingsArgs struct {
	Values map[string]string
}

// DirectoryArgs carries the working directory to the addon.
type DirectoryArgs struct {
	Dir string
}

// ThreadsReply lists the addon's workers.
type ThreadsReply struct {
	Threads []Thread
}

// RPCServer exposes an addon instance over net/rpc.
type RPCServer struct {
	impl any
}

// Probe reports which capabilities the instance provides.
func (s *RPCServer) Probe(_ CallArgs, reply *ProbeReply) error {
	for _, c := range AllCapabilities() {
		if Provides(s.impl, c) {
			reply.Capabilities = append(reply.Capabilities, c)
		}
	}
	return nil
}

// SetAddonInfo forwards to InfoReceiver.
func (s *RPCServer) SetAddonInfo(args InfoArgs, reply *Ack) error {
	r, ok := s.impl.(InfoReceiver)
	if !ok {
		return errNotProvided(CapabilityInfo)
	}
	reply.OK = true
	return r.SetAddonInfo(args.Info)
}

// SetSettings forwards to SettingsReceiver.
func (s *RPCServer) SetSettings(args SettingsArgs, reply *Ack) error {
	r, ok := s.impl.(SettingsReceiver)
	if !ok {
		return errNotProvided(CapabilitySettings)
	}
	reply.OK = true
	return r.SetSettings(Snapshot(args.Values))
}

// SetDirectory forwards to DirectoryReceiver.
func (s *RPCServer) SetDirectory(args DirectoryArgs, reply *Ack) error {
	r, ok := s.impl.(DirectoryReceiver)
	if !ok {
		return errNotProvided(CapabilityDirectory)
	}
	reply.OK = true
	return r.SetDirectory(args.Dir)
}

// Enable forwards to Enabler.
func (s *RPCServer) Enable(_ CallArgs, reply *Ack) error {
	e, ok := s.impl.(Enabler)
	if !ok {
		return errNotProvided(CapabilityEnable)
	}
	reply.OK = true
	return e.OnEnable(context.Background())
}

// Disable forwards to Disabler.
func (s *RPCServer) Disable(_ CallArgs, reply *Ack) error {
	d, ok := s.impl.(Disabler)
	if !ok {
		return errNotProvided(CapabilityDisable)
	}
	reply.OK = true
	return d.OnDisable(context.Background())
}

// Threads forwards to ThreadLister.
func (s *RPCServer) Threads(_ CallArgs, reply *ThreadsReply) error {
	l, ok := s.impl.(ThreadLister)
	if !ok {
		return errNotProvided(CapabilityThreads)
	}
	threads, err := l.Threads()
	if err != nil {
		return err
	}
	reply.Threads = threads
	return nil
}

func errNotProvided(c Capability) error {
	return fmt.Errorf("addon does not provide capability %q", c)
}

// RPCClient is the host-side stub of a process addon.
type RPCClient struct {
	client *rpc.Client
}

// Probe asks the addon which capabilities it provides.
func (c *RPCClient) Probe() ([]Capability, error) {
	var reply ProbeReply
	if err := c.client.Call("Plugin.Probe", CallArgs{}, &reply); err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	return reply.Capabilities, nil
}

// SetAddonInfo sends metadata to the addon.
func (c *RPCClient) SetAddonInfo(meta Metadata) error {
	return c.call("Plugin.SetAddonInfo", InfoArgs{Info: meta})
}

// SetSettings sends a settings snapshot to the addon.
func (c *RPCClient) SetSettings(values map[string]string) error {
	return c.call("Plugin.SetSettings", SettingsArgs{Values: values})
}

// SetDirectory sends the working directory to the addon.
func (c *RPCClient) SetDirectory(dir string) error {
	return c.call("Plugin.SetDirectory", DirectoryArgs{Dir: dir})
}

// Enable invokes the addon's enable hook.
func (c *RPCClient) Enable() error {
	return c.call("Plugin.Enable", CallArgs{})
}

// Disable invokes the addon's disable hook.
func (c *RPCClient) Disable() error {
	return c.call("Plugin.Disable", CallArgs{})
}

// Threads asks the addon for its workers.
func (c *RPCClient) Threads() ([]Thread, error) {
	var reply ThreadsReply
	if err := c.client.Call("Plugin.Threads", CallArgs{}, &reply); err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}
	return reply.Threads, nil
}

func (c *RPCClient) call(method string, args any) error {
	var ack Ack
	if err := c.client.Call(method, args, &ack); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
