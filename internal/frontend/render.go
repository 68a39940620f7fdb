package frontend

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"dewpoint.dev/monitor/pkg/metrics"
)

// renderIndex renders the dashboard page.
func renderIndex(ctx context.Context, w http.ResponseWriter, data pageData, m *metrics.DashboardMetrics) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	//nolint:contextcheck // Context is passed to Templ's Render method
	return trackTemplateRender(m, "index", func() error {
		return index(data).Render(ctx, w)
	})
}

// trackTemplateRender wraps template rendering with metrics tracking.
func trackTemplateRender(m *metrics.DashboardMetrics, templateName string, renderFunc func() error) error {
	if m == nil {
		return renderFunc()
	}

	timer := prometheus.NewTimer(m.TemplateRenderTime.WithLabelValues(templateName))
	defer timer.ObserveDuration()

	if err := renderFunc(); err != nil {
		m.TemplateRenderErrors.WithLabelValues(templateName).Inc()
		return err
	}
	return nil
}
