// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/holomush/addonkit/internal/config"
	"github.com/holomush/addonkit/internal/logging"
	"github.com/holomush/addonkit/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() prometheus.Registerer
}

// serveDeps holds injectable dependencies for the serve command. Nil fields
// use their defaults.
type serveDeps struct {
	// ObservabilityServerFactory creates the metrics/health server.
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer
	// Signals delivers shutdown signals. Defaults to SIGINT and SIGTERM.
	Signals func() (<-chan os.Signal, func())
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var noConsole bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the addon service",
		Long: `Start the addon service: instantiate the configured managers, load and
enable every discovered addon, and read console commands from stdin until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, !noConsole, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read console commands from stdin")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, withConsole bool, deps *serveDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &serveDeps{}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, observability.WithLogger(logger))
		}
	}
	if deps.Signals == nil {
		deps.Signals = func() (<-chan os.Signal, func()) {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			return ch, func() { signal.Stop(ch) }
		}
	}

	logger, err := logging.Setup("addonkit", version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var reg prometheus.Registerer
	var h *host
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			return h != nil && h.service.Ready()
		}, logger)
		reg = obsServer.Registry()
	}

	h, err = newHost(cfg, logger, reg)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	if err := h.service.Start(ctx); err != nil {
		stopObservability(logger, obsServer)
		return fmt.Errorf("failed to start addon service: %w", err)
	}

	sigChan, stopSignals := deps.Signals()
	defer stopSignals()

	if withConsole {
		go readConsole(ctx, h, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	cmd.Println("Addon service started")
	logger.Info("addon service ready", "managers", h.service.Managers())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var stopErr error
	if err := h.service.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping addon service", "error", err)
		stopErr = err
	}
	stopObservability(logger, obsServer)

	logger.Info("shutdown complete")
	return stopErr
}

// readConsole dispatches every line read from in until in is exhausted or
// ctx ends. Blank lines are skipped.
func readConsole(ctx context.Context, h *host, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Failures were already reported to out.
		_ = h.run(ctx, line, out)
	}
	if err := scanner.Err(); err != nil {
		h.logger.Warn("console input failed", "error", err)
	}
}

func stopObservability(logger *slog.Logger, obsServer ObservabilityServer) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports an error. It exits
// when an error arrives, the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
