package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/sensor"
)

// seedBatchSize keeps each insert statement under SQLite's bound-parameter limit.
const seedBatchSize = 150

// ReadingStore is the reading history keyed by timestamp.
type ReadingStore interface {
	// Upsert inserts r or replaces the reading with the same timestamp.
	Upsert(ctx context.Context, r sensor.Reading) error
	// Latest returns the newest reading, or nil when the store is empty.
	Latest(ctx context.Context) (*sensor.Reading, error)
	// All returns every reading in ascending timestamp order.
	All(ctx context.Context) ([]sensor.Reading, error)
	// Range returns readings with start <= timestamp <= end in ascending order.
	// A zero bound is open.
	Range(ctx context.Context, start, end time.Time) ([]sensor.Reading, error)
	// PruneOlderThan deletes readings strictly before cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	// SeedIfEmpty inserts build() in one transaction when the store holds no readings.
	SeedIfEmpty(ctx context.Context, build func() []sensor.Reading) (int, error)
	// Transaction runs fn against a store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx ReadingStore) error) error
}

// Store is the gorm-backed ReadingStore.
type Store struct {
	db      *gorm.DB
	metrics *metrics.BackendMetrics
}

var _ ReadingStore = (*Store)(nil)

// NewStore wraps an open database. m may be nil.
func NewStore(db *gorm.DB, m *metrics.BackendMetrics) (*Store, error) {
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	return &Store{db: db, metrics: m}, nil
}

// track records the outcome of a store operation started at start.
func (s *Store) track(op string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if *err != nil {
		status = "error"
	}
	s.metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Store) Upsert(ctx context.Context, r sensor.Reading) (err error) {
	defer s.track("upsert", time.Now(), &err)

	rec := newReadingRecord(r)
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ts"}},
			UpdateAll: true,
		}).
		Create(&rec)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert reading at %d: %w", rec.Timestamp, result.Error)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context) (_ *sensor.Reading, err error) {
	defer s.track("latest", time.Now(), &err)

	var records []ReadingRecord
	if err := s.db.WithContext(ctx).Order("ts DESC").Limit(1).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	r := records[0].Reading()
	return &r, nil
}

func (s *Store) All(ctx context.Context) ([]sensor.Reading, error) {
	return s.Range(ctx, time.Time{}, time.Time{})
}

func (s *Store) Range(ctx context.Context, start, end time.Time) (_ []sensor.Reading, err error) {
	defer s.track("range", time.Now(), &err)

	q := s.db.WithContext(ctx).Order("ts ASC")
	if !start.IsZero() {
		q = q.Where("ts >= ?", start.UnixMilli())
	}
	if !end.IsZero() {
		q = q.Where("ts <= ?", end.UnixMilli())
	}

	var records []ReadingRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	readings := make([]sensor.Reading, len(records))
	for i, rec := range records {
		readings[i] = rec.Reading()
	}
	return readings, nil
}

func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	defer s.track("prune", time.Now(), &err)

	result := s.db.WithContext(ctx).Where("ts < ?", cutoff.UnixMilli()).Delete(&ReadingRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) Count(ctx context.Context) (_ int64, err error) {
	defer s.track("count", time.Now(), &err)

	var n int64
	if err := s.db.WithContext(ctx).Model(&ReadingRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return n, nil
}

func (s *Store) SeedIfEmpty(ctx context.Context, build func() []sensor.Reading) (seeded int, err error) {
	defer s.track("seed", time.Now(), &err)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&ReadingRecord{}).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to count readings: %w", err)
		}
		if n > 0 {
			return nil
		}

		readings := build()
		if len(readings) == 0 {
			return nil
		}

		records := make([]ReadingRecord, len(readings))
		for i, r := range readings {
			records[i] = newReadingRecord(r)
		}
		if err := tx.CreateInBatches(records, seedBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert seed readings: %w", err)
		}
		seeded = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}

func (s *Store) Transaction(ctx context.Context, fn func(tx ReadingStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, metrics: s.metrics})
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
