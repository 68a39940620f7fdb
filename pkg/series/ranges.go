package series

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRange is returned for a range identifier outside the supported set.
var ErrUnknownRange = errors.New("unknown history range")

// Range identifies a trailing history window selectable on the chart.
type Range string

const (
	RangeMinute   Range = "1m"
	RangeHour     Range = "1h"
	RangeSixHours Range = "6h"
	RangeDay      Range = "24h"
	RangeWeek     Range = "7d"
	RangeMonth    Range = "30d"
	RangeQuarter  Range = "90d"
	RangeYear     Range = "1y"

	DefaultRange = RangeWeek
)

const defaultBucketWidth = 5 * time.Minute

// TimeUnit is the axis unit used when rendering a range.
type TimeUnit string

const (
	UnitSecond TimeUnit = "second"
	UnitMinute TimeUnit = "minute"
	UnitHour   TimeUnit = "hour"
	UnitDay    TimeUnit = "day"
	UnitMonth  TimeUnit = "month"
)

// RangeOption carries the window and rendering details of a Range.
type RangeOption struct {
	Range       Range         `json:"range"`
	Label       string        `json:"label"`
	Window      time.Duration `json:"-"`
	Unit        TimeUnit      `json:"unit"`
	BucketWidth time.Duration `json:"-"`
}

var rangeOptions = []RangeOption{
	{Range: RangeMinute, Label: "1 minute", Window: time.Minute, Unit: UnitSecond, BucketWidth: 10 * time.Second},
	{Range: RangeHour, Label: "1 hour", Window: time.Hour, Unit: UnitMinute, BucketWidth: defaultBucketWidth},
	{Range: RangeSixHours, Label: "6 hours", Window: 6 * time.Hour, Unit: UnitHour, BucketWidth: defaultBucketWidth},
	{Range: RangeDay, Label: "24 hours", Window: 24 * time.Hour, Unit: UnitHour, BucketWidth: defaultBucketWidth},
	{Range: RangeWeek, Label: "7 days", Window: 7 * 24 * time.Hour, Unit: UnitDay, BucketWidth: defaultBucketWidth},
	{Range: RangeMonth, Label: "30 days", Window: 30 * 24 * time.Hour, Unit: UnitDay, BucketWidth: defaultBucketWidth},
	{Range: RangeQuarter, Label: "90 days", Window: 90 * 24 * time.Hour, Unit: UnitDay, BucketWidth: defaultBucketWidth},
	{Range: RangeYear, Label: "1 year", Window: 365 * 24 * time.Hour, Unit: UnitMonth, BucketWidth: defaultBucketWidth},
}

// Options lists every selectable range in display order.
func Options() []RangeOption {
	out := make([]RangeOption, len(rangeOptions))
	copy(out, rangeOptions)
	return out
}

// Option returns the details of r.
func (r Range) Option() (RangeOption, bool) {
	for _, opt := range rangeOptions {
		if opt.Range == r {
			return opt, true
		}
	}
	return RangeOption{}, false
}

// ParseRange parses a range identifier. An empty string yields DefaultRange.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return DefaultRange, nil
	}
	r := Range(s)
	if _, ok := r.Option(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRange, s)
	}
	return r, nil
}
