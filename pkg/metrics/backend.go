package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics contains Prometheus metrics for the mock backend.
type BackendMetrics struct {
	HTTP *HTTPMetrics

	ReadingsGenerated      *prometheus.CounterVec
	ReadingsPruned         prometheus.Counter
	LatestReading          *prometheus.GaugeVec
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	SeedDuration           prometheus.Histogram
	FanToggles             prometheus.Counter
	FanRunning             prometheus.Gauge
	EventsPublished        *prometheus.CounterVec
}

// NewBackendMetrics creates and registers backend metrics.
func NewBackendMetrics(namespace string) *BackendMetrics {
	m := &BackendMetrics{
		HTTP: newHTTPMetrics(namespace),
		ReadingsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "readings_total",
				Help:      "Total number of synthesized readings",
			},
			[]string{"source"}, // source: live, seed
		),
		ReadingsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "readings_pruned_total",
				Help:      "Total number of readings removed by retention pruning",
			},
		),
		LatestReading: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generator",
				Name:      "latest_value",
				Help:      "Most recent generated value per channel",
			},
			[]string{"channel"}, // channel: indoor_temp, outdoor_temp, humidity, dew_point
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of history store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Duration of history store operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SeedDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "seed_duration_seconds",
				Help:      "Duration of the initial history backfill",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		FanToggles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fan",
				Name:      "toggles_total",
				Help:      "Total number of fan toggles",
			},
		),
		FanRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "fan",
				Name:      "running",
				Help:      "Fan state (1=running, 0=stopped)",
			},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of published events",
			},
			[]string{"type", "status"},
		),
	}

	MustRegister(m.HTTP.collectors()...)
	MustRegister(
		m.ReadingsGenerated,
		m.ReadingsPruned,
		m.LatestReading,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.SeedDuration,
		m.FanToggles,
		m.FanRunning,
		m.EventsPublished,
	)

	return m
}
