package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/generator"
	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/sensor"
)

// SeedInterval is the spacing of backfilled readings.
const SeedInterval = time.Hour

// RetentionCutoff returns the oldest timestamp kept when now is the newest.
func RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(-1, 0, 0)
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Store     ReadingStore
	Generator *generator.Generator
	Logger    *slog.Logger

	// Optional.
	Notifier Notifier
	Metrics  *metrics.BackendMetrics
	Clock    func() time.Time
}

// Service produces live readings and serves the stored history.
type Service struct {
	store    ReadingStore
	gen      *generator.Generator
	logger   *slog.Logger
	notifier Notifier
	metrics  *metrics.BackendMetrics
	clock    func() time.Time

	// mu serializes the live path so that two requests never chain from the same latest reading.
	mu sync.Mutex
}

// NewService validates cfg and creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	s := &Service{
		store:    cfg.Store,
		gen:      cfg.Generator,
		logger:   cfg.Logger.With("component", "service"),
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		clock:    cfg.Clock,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s, nil
}

// Current generates the reading for now from the latest stored one, stores
// it and prunes readings older than the retention window, all in a single
// transaction.
func (s *Service) Current(ctx context.Context) (sensor.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	var (
		reading sensor.Reading
		pruned  int64
	)

	err := s.store.Transaction(ctx, func(tx ReadingStore) error {
		latest, err := tx.Latest(ctx)
		if err != nil {
			return err
		}

		reading = s.gen.Next(latest, now, generator.SeasonalBias(now))

		if err := tx.Upsert(ctx, reading); err != nil {
			return err
		}

		pruned, err = tx.PruneOlderThan(ctx, RetentionCutoff(now))
		return err
	})
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("failed to produce current reading: %w", err)
	}

	s.logger.Debug("generated reading",
		"timestamp", reading.Timestamp,
		"indoor_temp", reading.IndoorTemp,
		"outdoor_temp", reading.OutdoorTemp,
		"humidity", reading.Humidity,
		"dew_point", reading.DewPoint,
		"pruned", pruned,
	)

	s.record(reading, pruned)
	s.notifier.Notify(events.ReadingCreated(reading, now))

	return reading, nil
}

func (s *Service) record(r sensor.Reading, pruned int64) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReadingsGenerated.WithLabelValues("live").Inc()
	s.metrics.ReadingsPruned.Add(float64(pruned))
	s.metrics.LatestReading.WithLabelValues("indoor_temp").Set(r.IndoorTemp)
	s.metrics.LatestReading.WithLabelValues("outdoor_temp").Set(r.OutdoorTemp)
	s.metrics.LatestReading.WithLabelValues("humidity").Set(r.Humidity)
	s.metrics.LatestReading.WithLabelValues("dew_point").Set(r.DewPoint)
}

// History returns stored readings between start and end inclusive. Zero bounds are open.
func (s *Service) History(ctx context.Context, start, end time.Time) ([]sensor.Reading, error) {
	readings, err := s.store.Range(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return readings, nil
}

// HistoryDelta returns the readings of the days before end, including the day after end.
func (s *Service) HistoryDelta(ctx context.Context, end time.Time, days int) ([]sensor.Reading, error) {
	if days < 0 {
		return nil, fmt.Errorf("days must not be negative, got %d", days)
	}
	return s.History(ctx, end.AddDate(0, 0, -days), end.AddDate(0, 0, 1))
}

// Seed backfills one year of hourly readings ending now if the store is empty.
// It returns the number of readings written, which is zero when the store
// already had data.
func (s *Service) Seed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.SeedDuration)
		defer timer.ObserveDuration()
	}

	end := s.clock()
	start := RetentionCutoff(end)

	n, err := s.store.SeedIfEmpty(ctx, func() []sensor.Reading {
		s.logger.Info("store is empty, backfilling history", "from", start, "to", end, "interval", SeedInterval)
		return s.gen.Backfill(start, end, SeedInterval, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed history: %w", err)
	}

	if n > 0 {
		s.logger.Info("history seeded", "readings", n)
		if s.metrics != nil {
			s.metrics.ReadingsGenerated.WithLabelValues("seed").Add(float64(n))
		}
	} else {
		s.logger.Info("history already present, skipping seed")
	}
	return n, nil
}
