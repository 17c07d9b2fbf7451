// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/addonkit/internal/addon"
	"github.com/holomush/addonkit/internal/addon/builtin"
	"github.com/holomush/addonkit/internal/addon/lua"
	"github.com/holomush/addonkit/internal/addon/process"
	"github.com/holomush/addonkit/internal/config"
	"github.com/holomush/addonkit/internal/console"
	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/internal/permission"
	"github.com/holomush/addonkit/internal/settings"

	// Example builtin addons.
	_ "github.com/holomush/addonkit/plugins/ticker"
)

// host wires the addon service to a console dispatcher.
type host struct {
	cfg        *config.Config
	logger     *slog.Logger
	service    *addon.Service
	dispatcher *console.Dispatcher
}

// newHost builds the service and console from cfg. When reg is nil no
// metrics are recorded.
func newHost(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*host, error) {
	var addonMetrics *addon.Metrics
	var consoleMetrics *console.Metrics
	if reg != nil {
		addonMetrics = addon.NewMetrics(reg)
		consoleMetrics = console.NewMetrics(reg)
	}

	env := &addon.Env{
		Settings: settings.NewStore(cfg.Addon.Settings),
		Events:   event.NewBus(logger),
		Logger:   logger,
		Metrics:  addonMetrics,
	}
	service := addon.NewService(env,
		addon.WithKind(builtin.Kind, builtin.Factory),
		addon.WithKind(lua.Kind, lua.Factory),
		addon.WithKind(process.Kind, process.Factory),
	)

	enforcer := permission.NewEnforcer()
	if err := enforcer.Grant(cfg.Console.Operator, cfg.Console.Grants); err != nil {
		return nil, oops.In("host").With("operator", cfg.Console.Operator).Wrapf(err, "grant console permissions")
	}

	dispatcher, err := console.NewDispatcher(console.NewDefaultRegistry(), enforcer,
		console.WithMetrics(consoleMetrics),
		console.WithLogger(logger),
	)
	if err != nil {
		return nil, oops.In("host").Wrapf(err, "create console dispatcher")
	}

	return &host{cfg: cfg, logger: logger, service: service, dispatcher: dispatcher}, nil
}

// run executes one console line for the configured operator. Failures are
// reported to out; only errors the operator cannot act on are returned.
func (h *host) run(ctx context.Context, line string, out io.Writer) error {
	err := h.dispatcher.Dispatch(ctx, line, &console.Execution{
		Operator: h.cfg.Console.Operator,
		Output:   out,
		Service:  h.service,
	})
	if err == nil {
		return nil
	}
	if _, werr := io.WriteString(out, console.OperatorMessage(err)+"\n"); werr != nil {
		h.logger.DebugContext(ctx, "console write failed", "error", werr)
	}
	return err
}
