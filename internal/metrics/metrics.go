// Package metrics exposes Prometheus metrics for syncs and indicator runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal        *prometheus.CounterVec // labels: source, result
	SyncBarsTotal     *prometheus.CounterVec // labels: code
	SyncDuration      prometheus.Histogram
	ComputeDuration   prometheus.Histogram
	LastSyncTimestamp prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockchart_fetch_total",
			Help: "Provider fetch attempts by source and result.",
		}, []string{"source", "result"}),
		SyncBarsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockchart_sync_bars_total",
			Help: "Daily bars merged into the store, by code.",
		}, []string{"code"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockchart_sync_duration_seconds",
			Help:    "Wall time of a full sync run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockchart_indicator_compute_seconds",
			Help:    "Time to compute the indicator set for one series.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		LastSyncTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockchart_last_sync_timestamp_seconds",
			Help: "Unix time of the last completed sync.",
		}),
	}
	m.registry.MustRegister(
		m.FetchTotal,
		m.SyncBarsTotal,
		m.SyncDuration,
		m.ComputeDuration,
		m.LastSyncTimestamp,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Fetch(source string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FetchTotal.WithLabelValues(source, result).Inc()
}

func (m *Metrics) SyncedBars(code string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SyncBarsTotal.WithLabelValues(code).Add(float64(n))
}

func (m *Metrics) SyncDone(started time.Time) {
	if m == nil {
		return
	}
	m.SyncDuration.Observe(time.Since(started).Seconds())
	m.LastSyncTimestamp.SetToCurrentTime()
}

func (m *Metrics) Computed(started time.Time) {
	if m == nil {
		return
	}
	m.ComputeDuration.Observe(time.Since(started).Seconds())
}
