/*
Package metrics holds the Prometheus metrics of the script engine.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics of a runtime manager and its fetch
// coordinator. All recording methods accept a nil receiver.
type Metrics struct {
	Registrations prometheus.Counter
	Recompiles    prometheus.Counter
	Removals      prometheus.Counter
	Instances     prometheus.Gauge

	// Drawing
	Draws        prometheus.Counter
	DrawErrors   prometheus.Counter
	DrawDuration prometheus.Histogram

	// External calls
	Fetches       *prometheus.CounterVec // labels: method, result
	FetchDuration prometheus.Histogram
	FetchSkipped  prometheus.Counter
}

// New creates the metrics and registers them with reg. If reg is nil, the
// metrics are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartscript_registrations_total",
			Help: "Total script registrations",
		}),
		Recompiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartscript_recompiles_total",
			Help: "Total recompilations caused by a change of data shape or inputs",
		}),
		Removals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartscript_removals_total",
			Help: "Total script instances removed, including retired ones",
		}),
		Instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartscript_instances",
			Help: "Live script instances",
		}),
		Draws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartscript_draws_total",
			Help: "Total routine executions",
		}),
		DrawErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartscript_draw_errors_total",
			Help: "Routine executions which failed",
		}),
		DrawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartscript_draw_duration_seconds",
			Help:    "Routine execution latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartscript_fetches_total",
			Help: "Total external calls (by method and result)",
		}, []string{"method", "result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartscript_fetch_duration_seconds",
			Help:    "External call latency",
			Buckets: prometheus.DefBuckets,
		}),
		FetchSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartscript_fetch_skipped_total",
			Help: "Fetch cycles skipped because one was still in flight",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Registrations, m.Recompiles, m.Removals, m.Instances,
			m.Draws, m.DrawErrors, m.DrawDuration,
			m.Fetches, m.FetchDuration, m.FetchSkipped,
		)
	}
	return m
}

// Registered counts a registration.
func (m *Metrics) Registered() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
	m.Instances.Inc()
}

// Retired counts the removal of an instance.
func (m *Metrics) Retired() {
	if m == nil {
		return
	}
	m.Removals.Inc()
	m.Instances.Dec()
}

// Recompiled counts a recompilation.
func (m *Metrics) Recompiled() {
	if m == nil {
		return
	}
	m.Recompiles.Inc()
}

// Drawn records a routine execution which started at start.
func (m *Metrics) Drawn(start time.Time, err error) {
	if m == nil {
		return
	}
	m.Draws.Inc()
	m.DrawDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.DrawErrors.Inc()
	}
}

// Fetched records an external call which started at start.
func (m *Metrics) Fetched(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Fetches.WithLabelValues(method, result).Inc()
	m.FetchDuration.Observe(time.Since(start).Seconds())
}

// Skipped counts a skipped fetch cycle.
func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.FetchSkipped.Inc()
}
