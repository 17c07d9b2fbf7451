// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/addonkit/internal/permission"
)

var tracer = otel.Tracer("github.com/holomush/addonkit/internal/console")

// unknownLabel is the metrics label for lines naming no registered command.
const unknownLabel = "unknown"

// Dispatcher parses console lines, checks permissions and runs commands.
type Dispatcher struct {
	registry *Registry
	enforcer *permission.Enforcer
	metrics  *Metrics
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithMetrics records every dispatch in m.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the logger for failed commands.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher over registry, checking permissions
// with enforcer.
func NewDispatcher(registry *Registry, enforcer *permission.Enforcer, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, oops.In("console").Errorf("registry cannot be nil")
	}
	if enforcer == nil {
		return nil, oops.In("console").Errorf("enforcer cannot be nil")
	}
	d := &Dispatcher{
		registry: registry,
		enforcer: enforcer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch parses input and runs the named command on behalf of
// exec.Operator. A usage result is returned as an INVALID_ARGS error; see
// IsUsage.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *Execution) (err error) {
	line, err := ParseLine(input)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "console.execute",
		trace.WithAttributes(
			attribute.String("command.name", line.Command),
			attribute.String("console.operator", exec.Operator),
		),
	)
	label := unknownLabel
	start := time.Now()
	defer func() {
		d.metrics.record(label, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	entry, ok := d.registry.Get(line.Command)
	if !ok {
		err = ErrUnknownCommand(line.Command)
		return err
	}
	label = entry.Name

	if entry.Permission != "" && !d.enforcer.Allowed(exec.Operator, entry.Permission) {
		err = ErrPermissionDenied(entry.Name, entry.Permission)
		return err
	}

	exec.Args = line.Args
	exec.Allowed = func(p string) bool { return d.enforcer.Allowed(exec.Operator, p) }
	err = entry.Handler(ctx, exec)
	if err != nil && !IsUsage(err) {
		d.logger.WarnContext(ctx, "console command failed",
			"command", entry.Name,
			"operator", exec.Operator,
			"error", err,
		)
	}
	return err
}
