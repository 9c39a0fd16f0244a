// Package brush defines how footprints are pressed into a height grid.
//
// Concrete algorithms implement GridBrush and work in integer cell
// coordinates. A Footprint wraps one and exposes the position-space Brush
// the scheduler drives: it converts world positions to cells, forwards the
// call and persists the grid afterwards.
package brush

import (
	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/terrain"
)

// Brush is the position-space interface the scheduler drives. Positions are
// world x/z relative to the grid origin.
type Brush interface {
	Deform(xLeft, zLeft, xRight, zRight float64) error
	Stabilize(xLeft, zLeft, xRight, zRight float64) error
	SmoothSingle(x, z, strength float64, radius int) error
}

// GridBrush is a deformation algorithm in cell coordinates. Implementations
// mutate g and record their accumulators on s; they never persist.
type GridBrush interface {
	DeformGrid(g *terrain.Grid, s *State, xLeft, zLeft, xRight, zRight int)
	StabilizeGrid(g *terrain.Grid, s *State, xLeft, zLeft, xRight, zRight int)
	SmoothSingleGrid(g *terrain.Grid, s *State, x, z int, strength float64, radius int)
}

// FootGate is implemented by brushes that press only the foot named before
// each Deform call. The scheduler issues one Deform per deforming foot and
// calls Press with that foot first.
type FootGate interface {
	Press(f components.Foot)
}

// Material holds the mutable material parameters pushed by presets or the UI.
type Material struct {
	YoungModulus           float64 // Pa
	YoungModulusGround     float64
	YoungModulusVegetation float64
	// UseVegetation switches the effective modulus to
	// ground + vegetation * ratio(cell).
	UseVegetation    bool
	PoissonRatio     float64
	FilterIterations int
	ActivateBump     bool
}

// ModulusAt returns the effective Young's modulus at a cell.
func (m Material) ModulusAt(g *terrain.Grid, x, z int) float64 {
	if m.UseVegetation {
		return m.YoungModulusGround + m.YoungModulusVegetation*g.VegetationRatio(x, z)
	}
	return m.YoungModulus
}

// Contact is the per-tick input from the force model and scheduler.
// Deforming marks the foot whose own contact window issued the current
// Deform call; a grounded foot past its window stays false.
type Contact struct {
	Grounded      [2]bool
	Deforming     [2]bool
	VerticalForce [2]float64 // magnitude of the foot force into the terrain, N
	ContactTime   float64
	DT            float64
}

// Cell is an integer grid coordinate.
type Cell struct {
	X, Z int
}

// State is the material, per-tick contact and accumulators shared by a
// footprint and its grid brush.
type State struct {
	Material Material
	Contact  Contact

	pressure [2]float64
	touched  [2][]Cell
}

// BeginTick installs this tick's contact input and clears the accumulators.
func (s *State) BeginTick(c Contact) {
	s.Contact = c
	s.pressure = [2]float64{}
	s.touched[0] = s.touched[0][:0]
	s.touched[1] = s.touched[1][:0]
}

// Record stores the pressure and footprint cells of a foot for this tick.
func (s *State) Record(f components.Foot, pressure float64, cells []Cell) {
	s.pressure[f] = pressure
	s.touched[f] = append(s.touched[f][:0], cells...)
}

// Pressure returns the last recorded pressure under a foot, Pa.
func (s *State) Pressure(f components.Foot) float64 { return s.pressure[f] }

// Touched returns the cells under a foot this tick. The slice is reused.
func (s *State) Touched(f components.Foot) []Cell { return s.touched[f] }
