// Package telemetry provides window statistics, footfall logs, bookmarks,
// snapshots and structured experiment output.
package telemetry

import (
	"github.com/pthm-cable/trail/components"
)

// EventType identifies footfall events.
type EventType string

const (
	EventLanding EventType = "landing"
	EventLiftOff EventType = "lift_off"
)

// Footfall is one landing or lift-off of one foot. X/Z are grid-local world
// coordinates.
type Footfall struct {
	Type     EventType `csv:"type"`
	Tick     int32     `csv:"tick"`
	SimTime  float64   `csv:"sim_time"`
	WalkerID uint32    `csv:"walker"`
	Foot     string    `csv:"foot"`
	X        float64   `csv:"x"`
	Z        float64   `csv:"z"`
	// Vertical foot force at the event, N
	Force float64 `csv:"force"`
}

// NewLandingEvent creates a landing event.
func NewLandingEvent(tick int32, simTime float64, walkerID uint32, foot components.Foot, x, z, force float64) Footfall {
	return Footfall{
		Type:     EventLanding,
		Tick:     tick,
		SimTime:  simTime,
		WalkerID: walkerID,
		Foot:     foot.String(),
		X:        x,
		Z:        z,
		Force:    force,
	}
}

// NewLiftOffEvent creates a lift-off event.
func NewLiftOffEvent(tick int32, simTime float64, walkerID uint32, foot components.Foot, x, z float64) Footfall {
	return Footfall{
		Type:     EventLiftOff,
		Tick:     tick,
		SimTime:  simTime,
		WalkerID: walkerID,
		Foot:     foot.String(),
		X:        x,
		Z:        z,
	}
}
