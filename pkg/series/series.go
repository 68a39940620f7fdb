// Package series turns raw reading histories into chart-ready series.
package series

import (
	"fmt"
	"slices"
	"time"

	"dewpoint.dev/monitor/pkg/sensor"
)

// Filter keeps readings at or after cutoff, preserving order.
func Filter(readings []sensor.Reading, cutoff time.Time) []sensor.Reading {
	out := make([]sensor.Reading, 0, len(readings))
	for _, r := range readings {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Bucket collapses readings into fixed-width time buckets keyed by
// floor(ms/width)*width. Each bucket keeps the reading with the latest
// timestamp; on identical timestamps the later reading in the input wins.
// The result is ordered by bucket key.
func Bucket(readings []sensor.Reading, width time.Duration) []sensor.Reading {
	widthMs := width.Milliseconds()
	if widthMs <= 0 {
		out := make([]sensor.Reading, len(readings))
		copy(out, readings)
		return out
	}

	buckets := make(map[int64]sensor.Reading, len(readings))
	for _, r := range readings {
		key := bucketKey(r.Millis(), widthMs)
		existing, ok := buckets[key]
		if !ok || r.Millis() >= existing.Millis() {
			buckets[key] = r
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]sensor.Reading, 0, len(keys))
	for _, k := range keys {
		out = append(out, buckets[k])
	}
	return out
}

func bucketKey(ms, widthMs int64) int64 {
	q := ms / widthMs
	if ms%widthMs != 0 && ms < 0 {
		q--
	}
	return q * widthMs
}

// Aggregate restricts readings to the trailing window of r ending at now
// and buckets the remainder with the range's bucket width.
func Aggregate(readings []sensor.Reading, r Range, now time.Time) ([]sensor.Reading, error) {
	opt, ok := r.Option()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRange, string(r))
	}
	return Bucket(Filter(readings, now.Add(-opt.Window)), opt.BucketWidth), nil
}

// Merge adds current to history, replacing any reading with the same
// timestamp, and returns the result sorted by timestamp.
func Merge(history []sensor.Reading, current *sensor.Reading) []sensor.Reading {
	out := make([]sensor.Reading, len(history), len(history)+1)
	copy(out, history)

	if current != nil {
		i := slices.IndexFunc(out, func(r sensor.Reading) bool {
			return r.Timestamp.Equal(current.Timestamp)
		})
		if i >= 0 {
			out[i] = *current
		} else {
			out = append(out, *current)
		}
	}

	slices.SortStableFunc(out, func(a, b sensor.Reading) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// SmoothingLabel describes the bucket width for display, e.g. "Smoothed to 5-minute intervals".
func SmoothingLabel(width time.Duration) string {
	switch {
	case width <= 0:
		return "Raw readings"
	case width%time.Hour == 0:
		return fmt.Sprintf("Smoothed to %d-hour intervals", int(width/time.Hour))
	case width%time.Minute == 0:
		return fmt.Sprintf("Smoothed to %d-minute intervals", int(width/time.Minute))
	default:
		return fmt.Sprintf("Smoothed to %d-second intervals", int(width/time.Second))
	}
}
