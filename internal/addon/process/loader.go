// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package process loads addons that run as separate executables.
//
// A process package must be a directory. Its main-entry identifier is the
// slash-separated path of an executable inside that directory; the
// executable calls addonsdk.Serve and talks to the host over go-plugin's
// net/rpc transport. Every constructed instance starts its own child
// process, which is killed when the instance is discarded.
package process

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Kind is the manager kind served by this loader.
const Kind = "process"

// probeAttempts bounds how often a freshly started child is probed before
// construction fails.
const probeAttempts = 3

// probeBackoff is the base delay between probe attempts.
const probeBackoff = 50 * time.Millisecond

// PluginClient wraps the go-plugin client for testability.
type PluginClient interface {
	// Client starts the process if needed and returns the RPC protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the executable at execPath.
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct {
	// Logger receives the child's stderr and go-plugin's own logging.
	Logger hclog.Logger
}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	logger := f.Logger
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:  "addon." + Kind,
			Level: hclog.Warn,
		})
	}
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig: addonsdk.HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			addonsdk.PluginName: &addonsdk.RPCPlugin{},
		},
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath confined to the package directory by Resolve
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
		Logger:           logger.Named(filepath.Base(execPath)),
	})
}

// Remote is the host-side view of a running process addon.
type Remote interface {
	Probe() ([]addonsdk.Capability, error)
	SetAddonInfo(meta addonsdk.Metadata) error
	SetSettings(values map[string]string) error
	SetDirectory(dir string) error
	Enable() error
	Disable() error
	Threads() ([]addonsdk.Thread, error)
}

var _ Remote = (*addonsdk.RPCClient)(nil)

// Loader resolves executables in directory packages.
type Loader struct {
	clients ClientFactory
	logger  *slog.Logger
}

// NewLoader creates a loader that starts real child processes.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		clients: &DefaultClientFactory{},
		logger:  logger,
	}
}

// NewLoaderWithFactory creates a loader with a custom client factory (for testing).
// Panics if factory is nil.
func NewLoaderWithFactory(factory ClientFactory, logger *slog.Logger) *Loader {
	if factory == nil {
		panic("process: factory cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{clients: factory, logger: logger}
}

// Factory is the addon.LoaderFactory for the process kind.
func Factory(env *addon.Env) (addon.Loader, error) {
	return NewLoader(env.Logger), nil
}

// Kind implements addon.Loader.
func (l *Loader) Kind() string { return Kind }

// Resolve implements addon.Loader. The executable must exist and be
// executable when the package is scanned; it is not started until an
// instance is constructed.
func (l *Loader) Resolve(_ context.Context, pkg *addon.Package, main string) (addon.Factory, error) {
	if !pkg.IsDir() {
		return nil, oops.In("process").
			With("package", pkg.Path).
			Hint("process addons must be unpacked into a directory").
			Errorf("package is an archive")
	}
	if !fs.ValidPath(main) || main == "." {
		return nil, oops.In("process").With("main", main).Errorf("invalid executable path %q", main)
	}
	execPath := filepath.Join(pkg.Path, filepath.FromSlash(main))
	fi, err := os.Stat(execPath)
	if err != nil {
		return nil, oops.In("process").With("main", main).Hint("executable not found in package").Wrap(err)
	}
	if fi.IsDir() || fi.Mode().Perm()&0o111 == 0 {
		return nil, oops.In("process").
			With("main", main).
			With("mode", fi.Mode().String()).
			Errorf("%s is not an executable file", main)
	}

	return func(ctx context.Context) (any, error) {
		return l.start(ctx, execPath)
	}, nil
}

// start launches the child, dispenses its RPC stub and probes its
// capabilities. The child is killed on any failure.
func (l *Loader) start(ctx context.Context, execPath string) (*Instance, error) {
	client := l.clients.NewClient(execPath)

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, oops.In("process").With("exec", execPath).Hint("failed to start addon process").Wrap(err)
	}
	raw, err := rpcClient.Dispense(addonsdk.PluginName)
	if err != nil {
		client.Kill()
		return nil, oops.In("process").With("exec", execPath).Hint("failed to dispense addon").Wrap(err)
	}
	remote, ok := raw.(Remote)
	if !ok {
		client.Kill()
		return nil, oops.In("process").With("exec", execPath).Errorf("dispensed %T is not an addon", raw)
	}

	var caps []addonsdk.Capability
	backoff := retry.WithMaxRetries(probeAttempts-1, retry.NewExponential(probeBackoff))
	err = retry.Do(ctx, backoff, func(context.Context) error {
		var probeErr error
		caps, probeErr = remote.Probe()
		if probeErr != nil {
			l.logger.Debug("probe failed, retrying", "exec", execPath, "error", probeErr)
			return retry.RetryableError(probeErr)
		}
		return nil
	})
	if err != nil {
		client.Kill()
		return nil, oops.In("process").With("exec", execPath).Hint("addon did not answer probe").Wrap(err)
	}

	l.logger.Debug("process addon started", "exec", execPath, "capabilities", caps)
	return newInstance(execPath, client, remote, caps), nil
}
