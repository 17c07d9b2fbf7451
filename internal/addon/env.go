// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/addonkit/internal/event"
	"github.com/holomush/addonkit/internal/settings"
)

// tracerName is the instrumentation scope for addon lifecycle spans.
const tracerName = "github.com/holomush/addonkit/internal/addon"

// Env carries the host collaborators that managers and addon wrappers need.
// It is built once at startup and passed down explicitly.
type Env struct {
	// Settings is the service's own settings store. Managers read their
	// directory layout from it. May be nil, in which case defaults apply.
	Settings *settings.Store
	// Events receives lifecycle and exception events.
	Events *event.Bus
	// Logger is the base logger; components add their own attributes.
	Logger *slog.Logger
	// Metrics records lifecycle transitions. May be nil.
	Metrics *Metrics
	// Tracer starts lifecycle spans. Defaults to the global otel tracer.
	Tracer trace.Tracer
	// Now is the clock used for activation times.
	Now func() time.Time
}

// normalized returns a copy of e with every nil collaborator replaced by a
// working default.
func (e *Env) normalized() *Env {
	out := Env{}
	if e != nil {
		out = *e
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Events == nil {
		out.Events = event.NewBus(out.Logger)
	}
	if out.Tracer == nil {
		out.Tracer = otel.Tracer(tracerName)
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

func (e *Env) settingString(key, def string) string {
	if e.Settings == nil {
		return def
	}
	return e.Settings.String(key, def)
}
