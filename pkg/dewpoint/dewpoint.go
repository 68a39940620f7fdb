// Package dewpoint computes dew points and derives ventilation advice from them.
package dewpoint

import (
	"math"

	"dewpoint.dev/monitor/pkg/sensor"
)

// Magnus-Tetens coefficients.
const (
	magnusA = 17.27
	magnusB = 237.7
)

// Calculate returns the dew point in °C for a temperature in °C and a relative
// humidity in percent. relHumidity must be greater than zero.
func Calculate(tempC, relHumidity float64) float64 {
	alpha := (magnusA*tempC)/(magnusB+tempC) + math.Log(relHumidity/100)
	return (magnusB * alpha) / (magnusA - alpha)
}

// Spread is the distance between a temperature and its dew point.
func Spread(tempC, dewPoint float64) float64 {
	return tempC - dewPoint
}

// Level classifies ventilation advice.
type Level string

const (
	LevelWaiting Level = "waiting"
	LevelAvoid   Level = "avoid"
	LevelGood    Level = "good"
	LevelNeutral Level = "neutral"
)

// condensationSpread is the indoor spread below which opening windows risks condensation.
const condensationSpread = 2.0

// Advice is a short ventilation recommendation for the current reading.
type Advice struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Advise derives ventilation advice. A nil reading yields LevelWaiting.
func Advise(current *sensor.Reading) Advice {
	if current == nil {
		return Advice{
			Level:       LevelWaiting,
			Title:       "Waiting for data",
			Description: "No reading has been received from the sensors yet.",
		}
	}

	if Spread(current.IndoorTemp, current.DewPoint) < condensationSpread {
		return Advice{
			Level:       LevelAvoid,
			Title:       "Avoid ventilating",
			Description: "Indoor air is close to its dew point. Fresh air could cause condensation.",
		}
	}

	if current.OutdoorTemp < current.IndoorTemp {
		return Advice{
			Level:       LevelGood,
			Title:       "Good time to ventilate",
			Description: "Outdoor air is cooler than indoor air. Opening windows will help drop humidity.",
		}
	}

	return Advice{
		Level:       LevelNeutral,
		Title:       "Ventilation optional",
		Description: "Outdoor air is warmer. Keep windows closed unless humidity rises.",
	}
}
