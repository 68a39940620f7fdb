// Package sensor defines the reading and fan status values shared by the
// backend, the dashboard and the event stream.
package sensor

import (
	"math"
	"time"
)

// Reading is one indoor/outdoor climate sample. Timestamp is the natural key.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	IndoorTemp  float64   `json:"indoorTemp"`
	OutdoorTemp float64   `json:"outdoorTemp"`
	Humidity    float64   `json:"humidity"`
	DewPoint    float64   `json:"dewPoint"`
}

// FanStatus is the current state of the ventilation fan.
type FanStatus struct {
	Running   bool      `json:"running"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// History is the response envelope for a list of readings.
type History struct {
	Readings []Reading `json:"readings"`
}

// Round1 rounds v to one decimal place, the precision readings are stored with.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Millis returns the reading timestamp as Unix milliseconds.
func (r Reading) Millis() int64 {
	return r.Timestamp.UnixMilli()
}
