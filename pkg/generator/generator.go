// Package generator synthesizes plausible indoor/outdoor climate readings.
//
// Each channel follows a mean-reverting bounded random walk: the previous
// value is pulled toward a seasonal baseline, perturbed by uniform noise and
// clamped to a physically sane range.
package generator

import (
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"dewpoint.dev/monitor/pkg/dewpoint"
	"dewpoint.dev/monitor/pkg/sensor"
)

// Noise supplies uniform random values. *gofakeit.Faker satisfies it.
type Noise interface {
	Float64Range(min, max float64) float64
}

// Channel describes the walk of a single measured quantity.
type Channel struct {
	Baseline       float64
	SeasonalWeight float64
	Reversion      float64
	NoiseScale     float64
	Min            float64
	Max            float64
}

var (
	IndoorChannel = Channel{
		Baseline:       21,
		SeasonalWeight: 0.35,
		Reversion:      0.2,
		NoiseScale:     0.8,
		Min:            17,
		Max:            26,
	}
	OutdoorChannel = Channel{
		Baseline:       12,
		SeasonalWeight: 1,
		Reversion:      0.2,
		NoiseScale:     1.2,
		Min:            -10,
		Max:            32,
	}
	// Humidity reverts slower than temperature and ignores the season.
	HumidityChannel = Channel{
		Baseline:   55,
		Reversion:  0.15,
		NoiseScale: 3,
		Min:        30,
		Max:        90,
	}
)

// Step advances the channel by one tick. A nil previous value starts at the baseline.
func (c Channel) Step(previous *float64, seasonalBias float64, noise Noise) float64 {
	baseline := c.Baseline + seasonalBias*c.SeasonalWeight
	value := baseline
	if previous != nil {
		value = *previous
	}

	half := c.NoiseScale / 2
	next := value + (baseline-value)*c.Reversion + noise.Float64Range(-half, half)

	return math.Max(c.Min, math.Min(c.Max, next))
}

// Generator produces readings chained from a previous reading.
type Generator struct {
	noise Noise
}

// New creates a Generator drawing from noise. A nil noise uses a randomly seeded faker.
func New(noise Noise) *Generator {
	if noise == nil {
		noise = gofakeit.New(0)
	}
	return &Generator{noise: noise}
}

// NewSeeded creates a Generator with a deterministic noise sequence.
func NewSeeded(seed uint64) *Generator {
	return New(gofakeit.New(seed))
}

// Next generates the reading for ts following prev, which may be nil on a cold start.
func (g *Generator) Next(prev *sensor.Reading, ts time.Time, seasonalBias float64) sensor.Reading {
	var indoorPrev, outdoorPrev, humidityPrev *float64
	if prev != nil {
		indoorPrev = &prev.IndoorTemp
		outdoorPrev = &prev.OutdoorTemp
		humidityPrev = &prev.Humidity
	}

	indoor := IndoorChannel.Step(indoorPrev, seasonalBias, g.noise)
	outdoor := OutdoorChannel.Step(outdoorPrev, seasonalBias, g.noise)
	humidity := HumidityChannel.Step(humidityPrev, seasonalBias, g.noise)

	return sensor.Reading{
		Timestamp:   ts.UTC().Truncate(time.Millisecond),
		IndoorTemp:  sensor.Round1(indoor),
		OutdoorTemp: sensor.Round1(outdoor),
		Humidity:    sensor.Round1(humidity),
		DewPoint:    sensor.Round1(dewpoint.Calculate(indoor, humidity)),
	}
}

// Backfill chains readings from start to end inclusive, one every step.
// The seasonal bias is evaluated per timestamp and prev seeds the first step.
func (g *Generator) Backfill(start, end time.Time, step time.Duration, prev *sensor.Reading) []sensor.Reading {
	if step <= 0 || end.Before(start) {
		return nil
	}

	readings := make([]sensor.Reading, 0, int(end.Sub(start)/step)+1)
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		next := g.Next(prev, ts, SeasonalBias(ts))
		readings = append(readings, next)
		prev = &readings[len(readings)-1]
	}

	return readings
}
