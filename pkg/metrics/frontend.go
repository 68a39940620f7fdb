package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DashboardMetrics contains Prometheus metrics for the dashboard.
type DashboardMetrics struct {
	HTTP *HTTPMetrics

	BackendRequests        *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec
	Refreshes              *prometheus.CounterVec
	ChartPoints            *prometheus.GaugeVec
	EventsApplied          *prometheus.CounterVec
	TemplateRenderTime     *prometheus.HistogramVec
	TemplateRenderErrors   *prometheus.CounterVec
}

// NewDashboardMetrics creates and registers dashboard metrics.
func NewDashboardMetrics(namespace string) *DashboardMetrics {
	m := &DashboardMetrics{
		HTTP: newHTTPMetrics(namespace),
		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend_client",
				Name:      "requests_total",
				Help:      "Total number of requests to the backend API",
			},
			[]string{"endpoint", "status"},
		),
		BackendRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend_client",
				Name:      "request_duration_seconds",
				Help:      "Duration of requests to the backend API",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "refreshes_total",
				Help:      "Total number of dashboard refreshes",
			},
			[]string{"status"},
		),
		ChartPoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "chart",
				Name:      "points",
				Help:      "Number of points in the last aggregated chart series",
			},
			[]string{"range"},
		),
		EventsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "applied_total",
				Help:      "Total number of live events applied to the dashboard",
			},
			[]string{"type"},
		),
		TemplateRenderTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "template",
				Name:      "render_duration_seconds",
				Help:      "Duration of template rendering",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25},
			},
			[]string{"template"},
		),
		TemplateRenderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "template",
				Name:      "render_errors_total",
				Help:      "Total number of template rendering errors",
			},
			[]string{"template"},
		),
	}

	MustRegister(m.HTTP.collectors()...)
	MustRegister(
		m.BackendRequests,
		m.BackendRequestDuration,
		m.Refreshes,
		m.ChartPoints,
		m.EventsApplied,
		m.TemplateRenderTime,
		m.TemplateRenderErrors,
	)

	return m
}
