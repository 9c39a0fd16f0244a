package brush

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/terrain"
)

// Footprint binds a GridBrush to a grid and adapts it to Brush.
type Footprint struct {
	name   string
	grid   *terrain.Grid
	inner  GridBrush
	state  State
	active bool
}

// NewFootprint wraps inner for grid.
func NewFootprint(name string, grid *terrain.Grid, inner GridBrush) *Footprint {
	return &Footprint{name: name, grid: grid, inner: inner}
}

// Name returns the brush name.
func (f *Footprint) Name() string { return f.name }

// Grid returns the bound grid.
func (f *Footprint) Grid() *terrain.Grid { return f.grid }

// State returns the material, contact and accumulator state.
func (f *Footprint) State() *State { return &f.state }

// Active reports whether the footprint currently holds the active slot.
func (f *Footprint) Active() bool { return f.active }

// Press limits the next Deform to foot ft.
func (f *Footprint) Press(ft components.Foot) {
	f.state.Contact.Deforming = [2]bool{}
	f.state.Contact.Deforming[ft] = true
}

func (f *Footprint) cell(x, z float64) (int, int) {
	c := f.grid.WorldToGrid(r3.Vec{X: x, Z: z})
	return int(c.X), int(c.Z)
}

// Deform converts both foot positions to cells, deforms and saves.
func (f *Footprint) Deform(xLeft, zLeft, xRight, zRight float64) error {
	lx, lz := f.cell(xLeft, zLeft)
	rx, rz := f.cell(xRight, zRight)
	f.inner.DeformGrid(f.grid, &f.state, lx, lz, rx, rz)
	return f.grid.Save()
}

// Stabilize converts both foot positions to cells, stabilizes and saves.
func (f *Footprint) Stabilize(xLeft, zLeft, xRight, zRight float64) error {
	lx, lz := f.cell(xLeft, zLeft)
	rx, rz := f.cell(xRight, zRight)
	f.inner.StabilizeGrid(f.grid, &f.state, lx, lz, rx, rz)
	return f.grid.Save()
}

// SmoothSingle converts the position to a cell, smooths around it and saves.
func (f *Footprint) SmoothSingle(x, z, strength float64, radius int) error {
	cx, cz := f.cell(x, z)
	f.inner.SmoothSingleGrid(f.grid, &f.state, cx, cz, strength, radius)
	return f.grid.Save()
}

// DeformGridF takes fractional cell coordinates, truncates and deforms.
func (f *Footprint) DeformGridF(xLeft, zLeft, xRight, zRight float64) error {
	f.inner.DeformGrid(f.grid, &f.state, int(xLeft), int(zLeft), int(xRight), int(zRight))
	return f.grid.Save()
}

// StabilizeGridF takes fractional cell coordinates, truncates and stabilizes.
func (f *Footprint) StabilizeGridF(xLeft, zLeft, xRight, zRight float64) error {
	f.inner.StabilizeGrid(f.grid, &f.state, int(xLeft), int(zLeft), int(xRight), int(zRight))
	return f.grid.Save()
}

// SmoothSingleGridF takes fractional cell coordinates, truncates and smooths.
func (f *Footprint) SmoothSingleGridF(x, z, strength float64, radius int) error {
	f.inner.SmoothSingleGrid(f.grid, &f.state, int(x), int(z), strength, radius)
	return f.grid.Save()
}
