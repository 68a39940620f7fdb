// Package backend is the mock sensor backend: it synthesizes readings, keeps
// a rolling year of history in a SQL store and serves it over HTTP.
package backend

import (
	"time"

	"dewpoint.dev/monitor/pkg/sensor"
)

// ReadingRecord is the stored form of a sensor.Reading, keyed by its
// timestamp in Unix milliseconds.
type ReadingRecord struct {
	Timestamp   int64   `gorm:"column:ts;primaryKey;autoIncrement:false"`
	IndoorTemp  float64 `gorm:"column:indoor_temp;not null"`
	OutdoorTemp float64 `gorm:"column:outdoor_temp;not null"`
	Humidity    float64 `gorm:"column:humidity;not null"`
	DewPoint    float64 `gorm:"column:dew_point;not null"`
}

// TableName specifies the table name for ReadingRecord.
func (ReadingRecord) TableName() string {
	return "readings"
}

func newReadingRecord(r sensor.Reading) ReadingRecord {
	return ReadingRecord{
		Timestamp:   r.Timestamp.UnixMilli(),
		IndoorTemp:  r.IndoorTemp,
		OutdoorTemp: r.OutdoorTemp,
		Humidity:    r.Humidity,
		DewPoint:    r.DewPoint,
	}
}

// Reading converts the record back to a sensor.Reading in UTC.
func (rec ReadingRecord) Reading() sensor.Reading {
	return sensor.Reading{
		Timestamp:   time.UnixMilli(rec.Timestamp).UTC(),
		IndoorTemp:  rec.IndoorTemp,
		OutdoorTemp: rec.OutdoorTemp,
		Humidity:    rec.Humidity,
		DewPoint:    rec.DewPoint,
	}
}
