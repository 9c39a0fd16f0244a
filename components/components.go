// Package components defines ECS components for the simulation.
package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/terrain"
)

// Foot identifies one of the two feet. Per-foot state is stored in [2]
// arrays indexed by Foot.
type Foot uint8

const (
	FootLeft Foot = iota
	FootRight
)

// Feet lists both feet in index order.
var Feet = [2]Foot{FootLeft, FootRight}

func (f Foot) String() string {
	if f == FootLeft {
		return "left"
	}
	return "right"
}

// Other returns the opposite foot.
func (f Foot) Other() Foot { return 1 - f }

// FootInput is what the kinematics layer reports for one foot each tick.
type FootInput struct {
	Position   r3.Vec // contact point, world space, offset applied
	Heel       r3.Vec
	Toe        r3.Vec
	HeelHeight float64 // above the terrain
	ToeHeight  float64
	Grounded   bool

	HeelVelocity r3.Vec
	ToeVelocity  r3.Vec
	// Velocity split by the sign of its component along the slope normal.
	VelocityDown r3.Vec
	VelocityUp   r3.Vec

	Origin       r3.Vec  // force application point
	Distribution float64 // weight fraction when both feet are grounded
}

// Gait is the per-walker kinematic state.
type Gait struct {
	Feet    [2]FootInput
	COM     r3.Vec // centre of mass, world space
	Forward r3.Vec
	Idle    bool
}

// Walker identifies a simulated character.
type Walker struct {
	ID   uint32
	Name string
}

// Sensing holds what the character senses under its centre of mass.
type Sensing struct {
	Slope terrain.Slope
}
