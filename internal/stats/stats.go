// Package stats records split, join, and profiling counters in a Prometheus registry
// and writes them in the node-exporter textfile format.
package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pmcperf/internal/join"
)

const namespace = "pmcperf"

// Recorder holds the collectors of one invocation. A nil Recorder ignores all calls.
type Recorder struct {
	registry        *prometheus.Registry
	splitRuns       prometheus.Counter
	joinInputTables prometheus.Gauge
	joinRows        prometheus.Gauge
	joinUnmatched   prometheus.Gauge
	divergentFields prometheus.Counter
	runDuration     *prometheus.GaugeVec
	sessionInfo     *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry, labeled with the session id
func NewRecorder(sessionID string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		splitRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_runs_total",
			Help:      "Run descriptors written by the splitter.",
		}),
		joinInputTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_input_tables",
			Help:      "Per-run measurement tables joined.",
		}),
		joinRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_rows",
			Help:      "Rows in the joined measurement table.",
		}),
		joinUnmatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_unmatched_rows",
			Help:      "Input rows dropped because their dispatch was missing from another run.",
		}),
		divergentFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_divergent_fields_total",
			Help:      "Duplicated metadata fields whose values differed between runs.",
		}),
		runDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profile_run_duration_seconds",
			Help:      "Wall time of each profiling pass.",
		}, []string{"run"}),
		sessionInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_info",
			Help:      "Constant 1, labeled with the session id.",
		}, []string{"session"}),
	}
	r.registry.MustRegister(r.splitRuns, r.joinInputTables, r.joinRows, r.joinUnmatched, r.divergentFields, r.runDuration, r.sessionInfo)
	r.sessionInfo.WithLabelValues(sessionID).Set(1)
	return r
}

// RecordSplit adds the number of run descriptors produced by a split
func (r *Recorder) RecordSplit(runs int) {
	if r == nil {
		return
	}
	r.splitRuns.Add(float64(runs))
}

// RecordJoin sets the join gauges from a join report
func (r *Recorder) RecordJoin(report join.Report) {
	if r == nil {
		return
	}
	r.joinInputTables.Set(float64(len(report.InputRows)))
	r.joinRows.Set(float64(report.Rows))
	r.joinUnmatched.Set(float64(report.UnmatchedTotal()))
	r.divergentFields.Add(float64(len(report.DivergentFields)))
}

// ObserveRun records the duration of one profiling pass
func (r *Recorder) ObserveRun(run string, duration time.Duration) {
	if r == nil {
		return
	}
	r.runDuration.WithLabelValues(run).Set(duration.Seconds())
}

// Gatherer exposes the registry, e.g., for tests
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	slog.Debug("wrote metrics file", slog.String("path", path))
	return nil
}
