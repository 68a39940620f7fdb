package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dewpoint.dev/monitor/pkg/dewpoint"
	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/sensor"
	"dewpoint.dev/monitor/pkg/series"
)

// User-facing messages for failed backend calls.
const (
	MsgReadingsUnavailable = "Could not load sensor data. Is the backend running?"
	MsgFanUnavailable      = "Could not load fan status."
	MsgFanToggleFailed     = "Could not toggle the fan."
)

// Snapshot is a consistent copy of the dashboard state.
type Snapshot struct {
	Current     *sensor.Reading   `json:"current"`
	History     []sensor.Reading  `json:"-"`
	HistorySize int               `json:"historySize"`
	Fan         *sensor.FanStatus `json:"fan"`
	Advice      dewpoint.Advice   `json:"advice"`
	Loaded      bool              `json:"loaded"`
	LastRefresh time.Time         `json:"lastRefresh"`
	Error       string            `json:"error,omitempty"`
	FanError    string            `json:"fanError,omitempty"`
}

// Chart is an aggregated series ready for plotting.
type Chart struct {
	Range     series.RangeOption `json:"range"`
	Smoothing string             `json:"smoothing"`
	Points    []sensor.Reading   `json:"points"`
}

// DashboardConfig holds the dependencies of a Dashboard.
type DashboardConfig struct {
	Client APIClient
	Logger *slog.Logger

	// Optional.
	Metrics *metrics.DashboardMetrics
	Clock   func() time.Time
}

// Dashboard holds the state shown by the dashboard: latest reading, merged
// history and fan status. Refresh, ToggleFan and Apply may be called
// concurrently; a failed fetch never clears previously loaded data.
type Dashboard struct {
	client  APIClient
	logger  *slog.Logger
	metrics *metrics.DashboardMetrics
	clock   func() time.Time

	mu          sync.RWMutex
	current     *sensor.Reading
	history     []sensor.Reading
	fan         *sensor.FanStatus
	loaded      bool
	lastRefresh time.Time
	err         string
	fanErr      string
}

// NewDashboard validates cfg and creates an empty Dashboard.
func NewDashboard(cfg DashboardConfig) (*Dashboard, error) {
	if cfg.Client == nil {
		return nil, errors.New("api client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	d := &Dashboard{
		client:  cfg.Client,
		logger:  cfg.Logger.With("component", "dashboard"),
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	return d, nil
}

// Refresh fetches the current reading, history and fan status concurrently.
// Readings are applied only when both the current reading and the history
// arrive; the fan status is applied on its own. The first fetch error is
// returned.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var (
		g       errgroup.Group
		current sensor.Reading
		history []sensor.Reading
		fan     sensor.FanStatus

		currentErr, historyErr, fanErr error
	)

	g.Go(func() error {
		current, currentErr = d.client.Current(ctx)
		return currentErr
	})
	g.Go(func() error {
		history, historyErr = d.client.History(ctx)
		return historyErr
	})
	g.Go(func() error {
		fan, fanErr = d.client.Fan(ctx)
		return fanErr
	})
	err := g.Wait()

	readingsErr := errors.Join(currentErr, historyErr)

	d.mu.Lock()
	if readingsErr == nil {
		d.current = &current
		d.history = series.Merge(history, &current)
		d.err = ""
		d.loaded = true
		d.lastRefresh = d.clock().UTC()
	} else {
		d.err = MsgReadingsUnavailable
	}
	if fanErr == nil {
		d.fan = &fan
		d.fanErr = ""
	} else {
		d.fanErr = MsgFanUnavailable
	}
	d.mu.Unlock()

	if readingsErr != nil {
		d.logger.Warn("failed to refresh readings", "error", readingsErr)
	}
	if fanErr != nil {
		d.logger.Warn("failed to refresh fan status", "error", fanErr)
	}
	d.recordRefresh(err)

	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	d.logger.Debug("dashboard refreshed", "history", len(history))
	return nil
}

func (d *Dashboard) recordRefresh(err error) {
	if d.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.Refreshes.WithLabelValues(status).Inc()
}

// ToggleFan asks the backend to toggle the fan. A failure sets the fan
// error and leaves the sensor data untouched.
func (d *Dashboard) ToggleFan(ctx context.Context) (sensor.FanStatus, error) {
	status, err := d.client.ToggleFan(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.fanErr = MsgFanToggleFailed
		d.logger.Warn("failed to toggle fan", "error", err)
		return sensor.FanStatus{}, fmt.Errorf("toggle fan: %w", err)
	}

	d.fan = &status
	d.fanErr = ""
	d.logger.Info("fan toggled", "running", status.Running)
	return status, nil
}

// Apply folds a live event into the state.
func (d *Dashboard) Apply(ev events.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	switch ev.Type {
	case events.TypeReadingCreated:
		r := *ev.Reading
		history := series.Merge(d.history, &r)
		// Same retention as the backend: one calendar year.
		d.history = series.Filter(history, r.Timestamp.AddDate(-1, 0, 0))
		if d.current == nil || !r.Timestamp.Before(d.current.Timestamp) {
			d.current = &r
		}
		d.loaded = true
	case events.TypeFanToggled:
		f := *ev.Fan
		if d.fan == nil || !f.UpdatedAt.Before(d.fan.UpdatedAt) {
			d.fan = &f
		}
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.EventsApplied.WithLabelValues(string(ev.Type)).Inc()
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		History:     d.history,
		HistorySize: len(d.history),
		Loaded:      d.loaded,
		LastRefresh: d.lastRefresh,
		Error:       d.err,
		FanError:    d.fanErr,
	}
	if d.current != nil {
		c := *d.current
		s.Current = &c
	}
	if d.fan != nil {
		f := *d.fan
		s.Fan = &f
	}
	s.Advice = dewpoint.Advise(s.Current)
	return s
}

// Chart aggregates the history for r as of now.
func (d *Dashboard) Chart(r series.Range) (Chart, error) {
	opt, ok := r.Option()
	if !ok {
		return Chart{}, fmt.Errorf("%w: %q", series.ErrUnknownRange, string(r))
	}

	d.mu.RLock()
	history := d.history
	d.mu.RUnlock()

	points, err := series.Aggregate(history, r, d.clock())
	if err != nil {
		return Chart{}, err
	}
	if d.metrics != nil {
		d.metrics.ChartPoints.WithLabelValues(string(r)).Set(float64(len(points)))
	}

	return Chart{
		Range:     opt,
		Smoothing: series.SmoothingLabel(opt.BucketWidth),
		Points:    points,
	}, nil
}
