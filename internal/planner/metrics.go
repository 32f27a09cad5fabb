// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package planner

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "cou_planner"

// Metrics is a prometheus.Collector counting generated plans.
type Metrics struct {
	plans        *prometheus.CounterVec
	skippedUnits prometheus.Counter
	plannedApps  prometheus.Counter
}

// NewMetrics returns a new Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "plans_total",
				Help:      "The number of plan generations, by result.",
			}, []string{"result"},
		),
		skippedUnits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "skipped_units_total",
				Help:      "The number of units left out of plans because they host workloads.",
			},
		),
		plannedApps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "planned_applications_total",
				Help:      "The number of applications with steps in generated plans.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.plans.Describe(ch)
	m.skippedUnits.Describe(ch)
	m.plannedApps.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.plans.Collect(ch)
	m.skippedUnits.Collect(ch)
	m.plannedApps.Collect(ch)
}

func (m *Metrics) recordSuccess(plannedApps, skippedUnits int) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues("success").Inc()
	m.plannedApps.Add(float64(plannedApps))
	m.skippedUnits.Add(float64(skippedUnits))
}

func (m *Metrics) recordFailure() {
	if m == nil {
		return
	}
	m.plans.WithLabelValues("failure").Inc()
}
