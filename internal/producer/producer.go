// Package producer samples live readings on a fixed schedule, standing in
// for a measuring station that reports without being asked.
package producer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dewpoint.dev/monitor/pkg/sensor"
)

// Source produces the next live reading.
type Source interface {
	Current(ctx context.Context) (sensor.Reading, error)
}

var (
	errInvalidInterval = errors.New("interval must be greater than 0")
	errSourceRequired  = errors.New("source is required")
	errLoggerRequired  = errors.New("logger is required")
)

// Producer calls its Source on every tick.
type Producer struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Producer.
func New(source Source, interval time.Duration, logger *slog.Logger) (*Producer, error) {
	if source == nil {
		return nil, errSourceRequired
	}
	if interval <= 0 {
		return nil, errInvalidInterval
	}
	if logger == nil {
		return nil, errLoggerRequired
	}
	return &Producer{
		source:   source,
		interval: interval,
		logger:   logger.With("component", "producer"),
	}, nil
}

// Run samples until ctx is canceled. Failed samples are logged and skipped.
func (p *Producer) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("producer started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("producer shutting down")
			return

		case <-ticker.C:
			r, err := p.source.Current(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				p.logger.Error("failed to sample reading", "error", err)
				continue
			}
			p.logger.Debug("reading sampled", "timestamp", r.Timestamp, "indoor_temp", r.IndoorTemp)
		}
	}
}
