// Package frontend serves the dew-point dashboard: it polls the backend,
// keeps the merged state and renders it as HTML and chart JSON.
package frontend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dewpoint.dev/monitor/internal/httpx"
	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/series"
)

const requestTimeout = 5 * time.Second

// HandlerConfig holds the dependencies of the dashboard HTTP handler.
type HandlerConfig struct {
	Dashboard *Dashboard
	Logger    *slog.Logger

	// Optional.
	Metrics *metrics.DashboardMetrics
}

// Handler serves the dashboard page and its JSON endpoints.
type Handler struct {
	dashboard *Dashboard
	logger    *slog.Logger
	metrics   *metrics.DashboardMetrics
	handler   http.Handler
}

// NewHandler validates cfg and builds the route table.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Dashboard == nil {
		return nil, errors.New("dashboard cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	h := &Handler{
		dashboard: cfg.Dashboard,
		logger:    cfg.Logger.With("component", "http"),
		metrics:   cfg.Metrics,
	}

	var httpMetrics *metrics.HTTPMetrics
	if h.metrics != nil {
		httpMetrics = h.metrics.HTTP
	}
	h.handler = httpx.Instrument(h.logger, httpMetrics, h.routes())
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /api/chart", h.handleChart)
	mux.HandleFunc("GET /api/ranges", h.handleRanges)

	mux.HandleFunc("POST /refresh", h.handleRefresh)
	mux.HandleFunc("POST /fan/toggle", h.handleFanToggle)

	mux.HandleFunc("GET /{$}", h.handleIndex)

	return mux
}

// handleIndex serves the dashboard page for the selected range.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	rng, err := series.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		http.Error(w, "Unknown range", http.StatusBadRequest)
		return
	}

	chart, err := h.dashboard.Chart(rng)
	if err != nil {
		h.logger.Error("failed to build chart", "error", err, "range", rng)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Snapshot: h.dashboard.Snapshot(),
		Chart:    chart,
		Options:  series.Options(),
	}
	if err := renderIndex(r.Context(), w, data, h.metrics); err != nil {
		h.logger.Error("failed to render index", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.dashboard.Snapshot())
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	rng, err := series.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	chart, err := h.dashboard.Chart(rng)
	if err != nil {
		h.logger.Error("failed to build chart", "error", err, "range", rng)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to build chart")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, chart)
}

func (h *Handler) handleRanges(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, series.Options())
}

// handleRefresh runs the same fetch as the poller. Failures are reported in
// the state, so the response is the snapshot either way.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.dashboard.Refresh(ctx); err != nil {
		h.logger.Debug("manual refresh failed", "error", err)
	}
	h.respondState(w, r)
}

func (h *Handler) handleFanToggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := h.dashboard.ToggleFan(ctx); err != nil {
		if wantsJSON(r) {
			httpx.WriteError(w, http.StatusBadGateway, MsgFanToggleFailed)
			return
		}
	}
	h.respondState(w, r)
}

// respondState answers form posts with a redirect to the page and API
// clients with the snapshot.
func (h *Handler) respondState(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, h.dashboard.Snapshot())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
