package generator

import (
	"math"
	"time"
)

const (
	seasonalAmplitude = 6.0
	yearLength        = 365 * 24 * time.Hour
)

// SeasonalBias maps an instant to a smooth annual temperature offset in °C.
// The year is approximated as 365 days, so leap years drift by up to a day.
func SeasonalBias(t time.Time) float64 {
	startOfYear := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	progress := float64(t.Sub(startOfYear)) / float64(yearLength)
	return math.Sin(progress*2*math.Pi) * seasonalAmplitude
}
