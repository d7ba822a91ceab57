// Package metrics tracks cleanup runs with Prometheus collectors. A one-shot
// run has no scrape window, so the registry can be pushed to a Pushgateway
// when the run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "indexcurator"

type Metrics struct {
	registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	deletedTotal   prometheus.Counter
	eligible       prometheus.Gauge
	runDuration    prometheus.Histogram
	lastSuccess    prometheus.Gauge
	pushgatewayURL string
	job            string
}

func New(pushgatewayURL, job string) *Metrics {
	m := &Metrics{
		registry:       prometheus.NewRegistry(),
		pushgatewayURL: pushgatewayURL,
		job:            job,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Cleanup runs by outcome",
			},
			[]string{"outcome"},
		),
		deletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indices_deleted_total",
				Help:      "Indices deleted across runs",
			},
		),
		eligible: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "eligible_indices",
				Help:      "Indices older than the cutoff in the last run",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of cleanup runs",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
		),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.deletedTotal,
		m.eligible,
		m.runDuration,
		m.lastSuccess,
	)

	return m
}

// RecordRun records one finished run. outcome is "changed", "unchanged",
// "dry_run" or a failure kind.
func (m *Metrics) RecordRun(outcome string, selected int, deleted int, duration time.Duration, finished time.Time, ok bool) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
	if !ok {
		return
	}
	m.eligible.Set(float64(selected))
	m.deletedTotal.Add(float64(deleted))
	m.lastSuccess.Set(float64(finished.Unix()))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) PushEnabled() bool {
	return m.pushgatewayURL != ""
}

// Push replaces this job's metric group on the configured Pushgateway.
func (m *Metrics) Push() error {
	if !m.PushEnabled() {
		return nil
	}
	if err := push.New(m.pushgatewayURL, m.job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
