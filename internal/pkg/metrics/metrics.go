// Package metrics exposes prometheus counters for the attendance engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	recorded      *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	sweepMarked   *prometheus.CounterVec
	sweepFailures *prometheus.CounterVec
	sweepRuns     *prometheus.CounterVec
}

// New creates counters on a private registry together with the process and
// go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "recorded_total",
			Help:      "Committed check-in and check-out transitions.",
		}, []string{"subject_type", "mode", "method", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "rejected_total",
			Help:      "Attendance attempts rejected, by error kind and code.",
		}, []string{"mode", "kind", "code"}),
		sweepMarked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "sweep_marked_absent_total",
			Help:      "Absence records written by the sweeper.",
		}, []string{"scope"}),
		sweepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "sweep_failures_total",
			Help:      "Per-subject write failures during a sweep.",
		}, []string{"scope"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "sweep_runs_total",
			Help:      "Sweep invocations by outcome.",
		}, []string{"scope", "outcome"}),
	}
	reg.MustRegister(m.recorded, m.rejected, m.sweepMarked, m.sweepFailures, m.sweepRuns)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The recording methods are no-ops on a nil receiver so services can run
// without metrics in tests.

func (m *Metrics) Recorded(subjectType, mode, method, status string) {
	if m == nil {
		return
	}
	m.recorded.WithLabelValues(subjectType, mode, method, status).Inc()
}

func (m *Metrics) Rejected(mode, kind, code string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(mode, kind, code).Inc()
}

func (m *Metrics) SweepMarked(scope string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweepMarked.WithLabelValues(scope).Add(float64(n))
}

func (m *Metrics) SweepFailed(scope string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweepFailures.WithLabelValues(scope).Add(float64(n))
}

func (m *Metrics) SweepRun(scope, outcome string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(scope, outcome).Inc()
}
