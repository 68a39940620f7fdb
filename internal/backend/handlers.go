package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dewpoint.dev/monitor/internal/httpx"
	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/sensor"
)

// APIConfig holds the dependencies of the HTTP API.
type APIConfig struct {
	Service *Service
	Fan     *FanState
	Logger  *slog.Logger

	// Optional.
	Store      *Store
	Notifier   Notifier
	Metrics    *metrics.BackendMetrics
	CORSOrigin string
}

// API serves readings and fan state as JSON.
type API struct {
	service  *Service
	fan      *FanState
	store    *Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.BackendMetrics
	handler  http.Handler
}

// NewAPI validates cfg and builds the route table.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Service == nil {
		return nil, errors.New("service cannot be nil")
	}
	if cfg.Fan == nil {
		return nil, errors.New("fan state cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	a := &API{
		service:  cfg.Service,
		fan:      cfg.Fan,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With("component", "api"),
		metrics:  cfg.Metrics,
	}
	if a.notifier == nil {
		a.notifier = nopNotifier{}
	}

	var httpMetrics *metrics.HTTPMetrics
	if a.metrics != nil {
		httpMetrics = a.metrics.HTTP
	}

	var handler http.Handler = a.routes()
	if cfg.CORSOrigin != "" {
		handler = httpx.AllowCORS(cfg.CORSOrigin, handler)
	}
	a.handler = httpx.Instrument(a.logger, httpMetrics, handler)
	return a, nil
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/current", a.handleCurrent)
	mux.HandleFunc("GET /api/history", a.handleHistory)
	mux.HandleFunc("GET /api/history/delta", a.handleHistoryDelta)
	mux.HandleFunc("GET /api/fan", a.handleFan)
	mux.HandleFunc("POST /api/fan/toggle", a.handleFanToggle)

	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			a.logger.Warn("health check failed", "error", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleCurrent(w http.ResponseWriter, r *http.Request) {
	reading, err := a.service.Current(r.Context())
	if err != nil {
		a.logger.Error("failed to produce current reading", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to produce current reading")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reading)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	start, end, msg := parseHistoryQuery(r)
	if msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	readings, err := a.service.History(r.Context(), start, end)
	if err != nil {
		a.logger.Error("failed to load history", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sensor.History{Readings: readings})
}

func (a *API) handleHistoryDelta(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid 'end' (expected RFC3339)")
		return
	}
	days, err := strconv.Atoi(q.Get("days"))
	if err != nil || days < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid 'days' (expected non-negative integer)")
		return
	}

	readings, err := a.service.HistoryDelta(r.Context(), end, days)
	if err != nil {
		a.logger.Error("failed to load history delta", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sensor.History{Readings: readings})
}

func (a *API) handleFan(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, a.fan.Status())
}

func (a *API) handleFanToggle(w http.ResponseWriter, _ *http.Request) {
	status := a.fan.Toggle()
	a.logger.Info("fan toggled", "running", status.Running)

	if a.metrics != nil {
		a.metrics.FanToggles.Inc()
		if status.Running {
			a.metrics.FanRunning.Set(1)
		} else {
			a.metrics.FanRunning.Set(0)
		}
	}
	a.notifier.Notify(events.FanToggled(status, status.UpdatedAt))

	httpx.WriteJSON(w, http.StatusOK, status)
}

// parseHistoryQuery reads the optional RFC3339 start and end bounds.
// A non-empty message describes the first invalid parameter.
func parseHistoryQuery(r *http.Request) (start, end time.Time, msg string) {
	q := r.URL.Query()

	if s := q.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, "invalid 'start' (expected RFC3339)"
		}
		start = t
	}
	if s := q.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, "invalid 'end' (expected RFC3339)"
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, "'start' must be <= 'end'"
	}
	return start, end, ""
}
