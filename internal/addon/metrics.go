// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition labels.
const (
	transitionLoad    = "load"
	transitionUnload  = "unload"
	transitionEnable  = "enable"
	transitionDisable = "disable"
	transitionReload  = "reload"
)

// Result labels.
const (
	resultOK     = "ok"
	resultVetoed = "vetoed"
	resultFailed = "failed"
)

// Metrics holds the prometheus collectors for addon lifecycle activity.
// A nil *Metrics records nothing.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Loaded      *prometheus.GaugeVec
	Active      *prometheus.GaugeVec
}

// NewMetrics creates the lifecycle collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "addonkit_addon_transitions_total",
				Help: "Total number of addon lifecycle transitions by kind, transition and result",
			},
			[]string{"kind", "transition", "result"},
		),
		Loaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "addonkit_addons_loaded",
				Help: "Number of addons registered per manager kind",
			},
			[]string{"kind"},
		),
		Active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "addonkit_addons_active",
				Help: "Number of active addons per manager kind",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(m.Transitions)
	reg.MustRegister(m.Loaded)
	reg.MustRegister(m.Active)

	return m
}

func (m *Metrics) transition(kind, transition, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind, transition, result).Inc()
}

func (m *Metrics) setLoaded(kind string, n int) {
	if m == nil {
		return
	}
	m.Loaded.WithLabelValues(kind).Set(float64(n))
}

func (m *Metrics) addActive(kind string, delta float64) {
	if m == nil {
		return
	}
	m.Active.WithLabelValues(kind).Add(delta)
}
