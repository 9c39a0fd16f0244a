// Package terrain holds the deformable heightmap and everything that reads or
// persists it.
package terrain

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidGrid is returned for grids that cannot be constructed.
var ErrInvalidGrid = errors.New("invalid grid")

// GridOptions configures a new Grid.
type GridOptions struct {
	Name       string
	Tag        string // material tag, used for preset lookup
	Resolution int    // samples per side
	Size       r3.Vec // world extent; Y is the height scale

	// Heights are raw normalized samples, row-major (z*Resolution + x).
	// Nil means a flat grid at zero.
	Heights []float32
	// Vegetation is the per-cell vegetation ratio in [0,1], same layout.
	// Nil means no vegetation.
	Vegetation []float64

	Store Store // nil disables persistence
}

// Grid is a square, toroidally addressed heightmap.
//
// Get/Set take cell coordinates that wrap at both ends, so (-1, z) addresses
// the last column. Heights are stored raw and scaled by Size.Y on access.
type Grid struct {
	name string
	tag  string

	W, H int

	size  r3.Vec
	scale r3.Vec // world units per cell on x/z, height scale on y

	data       []float32
	constant   []float32
	filtered   []float32
	vegetation []float64

	store   Store
	surface Surface
}

// NewGrid creates a grid and takes the constant and filtered snapshots.
func NewGrid(opts GridOptions) (*Grid, error) {
	n := opts.Resolution
	if n < 3 {
		return nil, fmt.Errorf("%w: resolution %d < 3", ErrInvalidGrid, n)
	}
	if opts.Size.X <= 0 || opts.Size.Y <= 0 || opts.Size.Z <= 0 {
		return nil, fmt.Errorf("%w: size %v must be positive", ErrInvalidGrid, opts.Size)
	}
	if opts.Heights != nil && len(opts.Heights) != n*n {
		return nil, fmt.Errorf("%w: %d heights for resolution %d", ErrInvalidGrid, len(opts.Heights), n)
	}
	if opts.Vegetation != nil && len(opts.Vegetation) != n*n {
		return nil, fmt.Errorf("%w: %d vegetation samples for resolution %d", ErrInvalidGrid, len(opts.Vegetation), n)
	}

	g := &Grid{
		name:  opts.Name,
		tag:   opts.Tag,
		W:     n,
		H:     n,
		size:  opts.Size,
		scale: r3.Vec{X: opts.Size.X / float64(n-1), Y: opts.Size.Y, Z: opts.Size.Z / float64(n-1)},

		data:     make([]float32, n*n),
		constant: make([]float32, n*n),
		filtered: make([]float32, n*n),
		store:    opts.Store,
	}
	if opts.Heights != nil {
		copy(g.data, opts.Heights)
	}
	copy(g.constant, g.data)
	copy(g.filtered, g.data)
	if opts.Vegetation != nil {
		g.vegetation = append([]float64(nil), opts.Vegetation...)
	}
	g.surface = &bilinearSurface{g: g}

	return g, nil
}

// Name returns the terrain name used as the persistence key.
func (g *Grid) Name() string { return g.name }

// Tag returns the material tag.
func (g *Grid) Tag() string { return g.tag }

// Size returns the world extent.
func (g *Grid) Size() r3.Vec { return g.size }

// Scale returns world units per cell on x/z and the height scale on y.
func (g *Grid) Scale() r3.Vec { return g.scale }

// CellLengthX is the world width of one cell.
func (g *Grid) CellLengthX() float64 { return g.scale.X }

// CellLengthZ is the world depth of one cell.
func (g *Grid) CellLengthZ() float64 { return g.scale.Z }

// CellArea is the world area of one cell.
func (g *Grid) CellArea() float64 { return g.scale.X * g.scale.Z }

// Surface returns the continuous surface sampler.
func (g *Grid) Surface() Surface { return g.surface }

// SetSurface replaces the continuous surface sampler.
func (g *Grid) SetSurface(s Surface) { g.surface = s }

// wrapInt maps any integer into [0, m).
func wrapInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func (g *Grid) index(x, z int) int {
	return wrapInt(z, g.H)*g.W + wrapInt(x, g.W)
}

// Get returns the world height at cell (x, z).
func (g *Grid) Get(x, z int) float32 {
	return g.data[g.index(x, z)] * float32(g.scale.Y)
}

// GetF truncates toward zero and returns Get.
func (g *Grid) GetF(x, z float64) float32 {
	return g.Get(int(x), int(z))
}

// GetConstant returns the world height at (x, z) as it was when the grid was created.
func (g *Grid) GetConstant(x, z int) float32 {
	return g.constant[g.index(x, z)] * float32(g.scale.Y)
}

// GetFiltered returns the world height at (x, z) from the filtered snapshot.
func (g *Grid) GetFiltered(x, z int) float32 {
	return g.filtered[g.index(x, z)] * float32(g.scale.Y)
}

// Set stores a world height at cell (x, z).
func (g *Grid) Set(x, z int, v float32) {
	g.data[g.index(x, z)] = v / float32(g.scale.Y)
}

// SetF truncates toward zero and calls Set.
func (g *Grid) SetF(x, z float64, v float32) {
	g.Set(int(x), int(z), v)
}

// VegetationRatio returns the vegetation ratio at (x, z), 0 without a map.
func (g *Grid) VegetationRatio(x, z int) float64 {
	if g.vegetation == nil {
		return 0
	}
	return g.vegetation[g.index(x, z)]
}

// Raw returns the live raw heights, row-major (z*W + x). Callers must not retain it
// across mutations they do not own.
func (g *Grid) Raw() []float32 { return g.data }

// WorldToGrid converts a position relative to the grid origin into fractional
// cell coordinates. Y passes through.
func (g *Grid) WorldToGrid(p r3.Vec) r3.Vec {
	return r3.Vec{X: p.X / g.scale.X, Y: p.Y, Z: p.Z / g.scale.Z}
}

// GridToWorld is the inverse of WorldToGrid.
func (g *Grid) GridToWorld(p r3.Vec) r3.Vec {
	return r3.Vec{X: p.X * g.scale.X, Y: p.Y, Z: p.Z * g.scale.Z}
}

// Interpolated samples the continuous surface at fractional cell coordinates.
func (g *Grid) Interpolated(x, z float64) float64 {
	return g.surface.Height(x/float64(g.W), z/float64(g.H))
}

// HeightAtWorld samples the surface under a world x/z relative to the grid origin.
func (g *Grid) HeightAtWorld(x, z float64) float64 {
	return g.surface.Height(x/g.size.X, z/g.size.Z)
}

// Steepness returns the surface steepness in degrees at fractional cell coordinates.
func (g *Grid) Steepness(x, z float64) float64 {
	return g.surface.Steepness(x/float64(g.W), z/float64(g.H))
}

// Normal returns the unit surface normal at fractional cell coordinates.
func (g *Grid) Normal(x, z float64) r3.Vec {
	return g.surface.Normal(x/float64(g.W), z/float64(g.H))
}

// Reset zeroes every cell and persists.
func (g *Grid) Reset() error {
	clear(g.data)
	return g.Save()
}

// Save persists the live heights through the configured store.
func (g *Grid) Save() error {
	if g.store == nil {
		return nil
	}
	if err := g.store.SaveHeights(g.name, g.W, g.H, g.data); err != nil {
		return fmt.Errorf("saving heightmap %q: %w", g.name, err)
	}
	return nil
}
