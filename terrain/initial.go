package terrain

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// InitialConditions captures per-cell surface normals and steepness when a
// grid is bound, before any deformation.
type InitialConditions struct {
	w, h      int
	normals   []r3.Vec
	steepness []float64
	grid      *Grid
}

// CaptureInitialConditions samples the grid's surface at every cell.
func CaptureInitialConditions(g *Grid) *InitialConditions {
	ic := &InitialConditions{
		w:         g.W,
		h:         g.H,
		normals:   make([]r3.Vec, g.W*g.H),
		steepness: make([]float64, g.W*g.H),
		grid:      g,
	}
	for z := 0; z < g.H; z++ {
		for x := 0; x < g.W; x++ {
			// Same normalization as Grid.Normal.
			u, v := float64(x)/float64(g.W), float64(z)/float64(g.H)
			i := z*g.W + x
			ic.normals[i] = g.surface.Normal(u, v)
			ic.steepness[i] = g.surface.Steepness(u, v)
		}
	}
	return ic
}

// NormalAt returns the initial normal of the cell under a world position.
func (ic *InitialConditions) NormalAt(p r3.Vec) r3.Vec {
	c := ic.grid.WorldToGrid(p)
	return ic.normals[ic.grid.index(int(c.X), int(c.Z))]
}

// Normal returns the initial normal of cell (x, z), wrapped.
func (ic *InitialConditions) Normal(x, z int) r3.Vec {
	return ic.normals[ic.grid.index(x, z)]
}

// Steepness returns the initial steepness of cell (x, z) in degrees, wrapped.
func (ic *InitialConditions) Steepness(x, z int) float64 {
	return ic.steepness[ic.grid.index(x, z)]
}

// Slope is what the character senses beneath its centre of mass.
type Slope struct {
	Normal        r3.Vec  // current surface normal
	InitialNormal r3.Vec  // normal before any deformation
	Angle         float64 // signed degrees, positive uphill along forward
	InitialAngle  float64
}

var up = r3.Vec{Y: 1}

// Sense samples the slope under position p for a character facing forward.
func Sense(g *Grid, ic *InitialConditions, p, forward r3.Vec) Slope {
	c := g.WorldToGrid(p)
	n := g.Normal(c.X, c.Z)
	n0 := n
	if ic != nil {
		n0 = ic.NormalAt(p)
	}
	return Slope{
		Normal:        n,
		InitialNormal: n0,
		Angle:         signedSlope(n, forward),
		InitialAngle:  signedSlope(n0, forward),
	}
}

// signedSlope is the tilt of n away from vertical, negative when the normal
// leans along forward (downhill).
func signedSlope(n, forward r3.Vec) float64 {
	cos := r3.Dot(r3.Unit(n), up)
	deg := math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
	if r3.Dot(n, forward) > 0 {
		return -deg
	}
	return deg
}
