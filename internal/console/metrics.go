// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/addonkit/pkg/errutil"
)

// Status labels for command execution metrics.
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusUsage            = "usage"
	StatusNotFound         = "not_found"
	StatusPermissionDenied = "permission_denied"
)

// Metrics holds the console collectors. A nil *Metrics records nothing.
type Metrics struct {
	Commands *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the console collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "addonkit_console_commands_total",
				Help: "Total number of console commands by command and status",
			},
			[]string{"command", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "addonkit_console_command_duration_seconds",
				Help:    "Console command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
	}

	reg.MustRegister(m.Commands)
	reg.MustRegister(m.Duration)

	return m
}

func (m *Metrics) record(command string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, statusOf(err)).Inc()
	m.Duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func statusOf(err error) string {
	if err == nil {
		return StatusSuccess
	}
	switch errutil.Code(err) {
	case CodeInvalidArgs:
		return StatusUsage
	case CodeUnknownCommand:
		return StatusNotFound
	case CodePermissionDenied:
		return StatusPermissionDenied
	default:
		return StatusError
	}
}
