// Package events defines the JSON envelope carried over the message queue
// between the backend and the dashboard.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dewpoint.dev/monitor/pkg/mq"
	"dewpoint.dev/monitor/pkg/sensor"
)

// Type names an event kind.
type Type string

const (
	TypeReadingCreated Type = "reading.created"
	TypeFanToggled     Type = "fan.toggled"
)

const contentType = "application/json"

// ErrInvalidEvent is returned when a payload does not decode into a usable event.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a state change published by the backend.
type Event struct {
	Type      Type              `json:"type"`
	EmittedAt time.Time         `json:"emittedAt"`
	Reading   *sensor.Reading   `json:"reading,omitempty"`
	Fan       *sensor.FanStatus `json:"fan,omitempty"`
}

// ReadingCreated wraps a freshly stored reading.
func ReadingCreated(r sensor.Reading, at time.Time) Event {
	return Event{Type: TypeReadingCreated, EmittedAt: at.UTC(), Reading: &r}
}

// FanToggled wraps the fan status after a toggle.
func FanToggled(status sensor.FanStatus, at time.Time) Event {
	return Event{Type: TypeFanToggled, EmittedAt: at.UTC(), Fan: &status}
}

// Validate checks that the payload matching Type is present.
func (e Event) Validate() error {
	switch e.Type {
	case TypeReadingCreated:
		if e.Reading == nil {
			return fmt.Errorf("%w: %s without reading", ErrInvalidEvent, e.Type)
		}
	case TypeFanToggled:
		if e.Fan == nil {
			return fmt.Errorf("%w: %s without fan status", ErrInvalidEvent, e.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// Message encodes the event for publishing.
func (e Event) Message() (mq.Message, error) {
	if err := e.Validate(); err != nil {
		return mq.Message{}, err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return mq.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return mq.Message{Type: string(e.Type), ContentType: contentType, Body: body}, nil
}

// Decode parses and validates an event body.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
