package backend

import (
	"sync"
	"time"

	"dewpoint.dev/monitor/pkg/sensor"
)

// FanState holds the current fan status. It is safe for concurrent use.
type FanState struct {
	mu     sync.RWMutex
	status sensor.FanStatus
	clock  func() time.Time
}

// NewFanState returns a stopped fan. A nil clock uses time.Now.
func NewFanState(clock func() time.Time) *FanState {
	if clock == nil {
		clock = time.Now
	}
	return &FanState{
		status: sensor.FanStatus{Running: false, UpdatedAt: clock().UTC()},
		clock:  clock,
	}
}

// Status returns a copy of the current status.
func (f *FanState) Status() sensor.FanStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

// Toggle flips the fan and returns the new status.
func (f *FanState) Toggle() sensor.FanStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = sensor.FanStatus{
		Running:   !f.status.Running,
		UpdatedAt: f.clock().UTC(),
	}
	return f.status
}
