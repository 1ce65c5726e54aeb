// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubgrub

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "composer"
	solverSubsystem  = "solver"
	sourceSubsystem  = "source"
)

// Metrics exposes solver and source activity as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	solvesTotal    *prometheus.CounterVec
	solveDuration  prometheus.Histogram
	solveSteps     prometheus.Histogram
	decisionsTotal prometheus.Counter
	conflictsTotal prometheus.Counter
	fetchesTotal   *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		solvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: solverSubsystem,
				Name:      "solves_total",
				Help:      "Total number of solves by outcome",
			},
			[]string{"outcome"},
		),
		solveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: solverSubsystem,
				Name:      "solve_duration_seconds",
				Help:      "Wall time of a solve in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		solveSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: solverSubsystem,
				Name:      "solve_steps",
				Help:      "Propagation, decision and backjump steps per solve",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
		decisionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: solverSubsystem,
				Name:      "decisions_total",
				Help:      "Total number of version decisions",
			},
		),
		conflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: solverSubsystem,
				Name:      "conflicts_total",
				Help:      "Total number of conflicts resolved",
			},
		),
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: sourceSubsystem,
				Name:      "fetches_total",
				Help:      "Metadata lookups by result",
			},
			[]string{"result"},
		),
		fetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: sourceSubsystem,
				Name:      "fetch_duration_seconds",
				Help:      "Latency of metadata fetches that missed the cache",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.solvesTotal,
			m.solveDuration,
			m.solveSteps,
			m.decisionsTotal,
			m.conflictsTotal,
			m.fetchesTotal,
			m.fetchDuration,
		)
	}
	return m
}

func (m *Metrics) observeSolve(outcome string, steps int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solvesTotal.WithLabelValues(outcome).Inc()
	m.solveSteps.Observe(float64(steps))
	m.solveDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeDecision() {
	if m == nil {
		return
	}
	m.decisionsTotal.Inc()
}

func (m *Metrics) observeConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *Metrics) observeCacheHit() {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues("hit").Inc()
}

func (m *Metrics) observeFetch(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "miss"
	if err != nil {
		result = "error"
	}
	m.fetchesTotal.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}
