package brush

import (
	"math"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/terrain"
)

// Stamp presses a disc-shaped sole into the grid with linear compliance:
// the target sink depth of a cell is pressure / E * LayerDepth, reached
// gradually over the contact time. It is a simple stand-in for a full
// elastic indentation model.
type Stamp struct {
	FootRadius float64 // world units
	LayerDepth float64 // compressible layer thickness, world units
	Margin     int     // feet closer than this to the border are ignored
}

// smoothing3 is the 3×3 binomial kernel used for local smoothing.
var smoothing3 = [3][3]float64{
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
	{2.0 / 16, 4.0 / 16, 2.0 / 16},
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
}

// footprintCells returns the cells whose centres lie within the sole disc.
// The centre cell is always included.
func (b *Stamp) footprintCells(g *terrain.Grid, cx, cz int, grow float64) []Cell {
	rx := b.FootRadius/g.CellLengthX() + grow
	rz := b.FootRadius/g.CellLengthZ() + grow
	ix, iz := int(math.Ceil(rx)), int(math.Ceil(rz))

	cells := []Cell{{X: cx, Z: cz}}
	for dz := -iz; dz <= iz; dz++ {
		for dx := -ix; dx <= ix; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			nx, nz := float64(dx)/math.Max(rx, 1e-9), float64(dz)/math.Max(rz, 1e-9)
			if nx*nx+nz*nz <= 1 {
				cells = append(cells, Cell{X: cx + dx, Z: cz + dz})
			}
		}
	}
	return cells
}

func (b *Stamp) inBounds(g *terrain.Grid, x, z int) bool {
	return x >= b.Margin && x < g.W-b.Margin && z >= b.Margin && z < g.H-b.Margin
}

// DeformGrid stamps every foot that is both grounded and deforming.
func (b *Stamp) DeformGrid(g *terrain.Grid, s *State, xLeft, zLeft, xRight, zRight int) {
	pos := [2]Cell{{X: xLeft, Z: zLeft}, {X: xRight, Z: zRight}}
	for _, f := range components.Feet {
		if !s.Contact.Grounded[f] || !s.Contact.Deforming[f] || !b.inBounds(g, pos[f].X, pos[f].Z) {
			continue
		}
		b.stamp(g, s, f, pos[f])
	}
}

func (b *Stamp) stamp(g *terrain.Grid, s *State, f components.Foot, c Cell) {
	cells := b.footprintCells(g, c.X, c.Z, 0)
	area := float64(len(cells)) * g.CellArea()
	pressure := s.Contact.VerticalForce[f] / area
	s.Record(f, pressure, cells)

	ct := s.Contact.ContactTime
	if ct <= 0 || s.Contact.DT <= 0 {
		return
	}

	var sunk float64
	for _, cell := range cells {
		e := s.Material.ModulusAt(g, cell.X, cell.Z)
		if e <= 0 {
			continue
		}
		target := pressure / e * b.LayerDepth
		step := s.Contact.DT * target / ct
		floor := float64(g.GetConstant(cell.X, cell.Z)) - target
		h := float64(g.Get(cell.X, cell.Z))
		next := math.Max(h-step, floor)
		if next < h {
			g.Set(cell.X, cell.Z, float32(next))
			sunk += h - next
		}
	}

	if s.Material.ActivateBump && sunk > 0 {
		rim := b.rimCells(g, c)
		if len(rim) > 0 {
			// Displaced volume pushed to the rim, scaled by Poisson's ratio.
			lift := sunk * s.Material.PoissonRatio / float64(len(rim))
			for _, cell := range rim {
				g.Set(cell.X, cell.Z, g.Get(cell.X, cell.Z)+float32(lift))
			}
		}
	}

	radius := int(math.Ceil(b.FootRadius/math.Min(g.CellLengthX(), g.CellLengthZ()))) + 1
	for i := 0; i < s.Material.FilterIterations; i++ {
		smoothWindow(g, c.X, c.Z, radius, 1)
	}
}

// rimCells are the cells in a one-cell ring just outside the sole.
func (b *Stamp) rimCells(g *terrain.Grid, c Cell) []Cell {
	inner := make(map[Cell]struct{})
	for _, cell := range b.footprintCells(g, c.X, c.Z, 0) {
		inner[cell] = struct{}{}
	}
	var rim []Cell
	for _, cell := range b.footprintCells(g, c.X, c.Z, 1) {
		if _, ok := inner[cell]; !ok {
			rim = append(rim, cell)
		}
	}
	return rim
}

// StabilizeGrid relaxes the rim around both feet halfway toward the local
// mean, settling sharp walls left by the stamp.
func (b *Stamp) StabilizeGrid(g *terrain.Grid, s *State, xLeft, zLeft, xRight, zRight int) {
	for _, c := range []Cell{{X: xLeft, Z: zLeft}, {X: xRight, Z: zRight}} {
		if !b.inBounds(g, c.X, c.Z) {
			continue
		}
		rim := b.rimCells(g, c)
		next := make([]float32, len(rim))
		for i, cell := range rim {
			h := float64(g.Get(cell.X, cell.Z))
			next[i] = float32(h + 0.5*(blurAt(g, cell.X, cell.Z)-h))
		}
		for i, cell := range rim {
			g.Set(cell.X, cell.Z, next[i])
		}
	}
}

// SmoothSingleGrid blends a (2·radius+1)² window around (x, z) toward its
// 3×3 blur by strength.
func (b *Stamp) SmoothSingleGrid(g *terrain.Grid, s *State, x, z int, strength float64, radius int) {
	smoothWindow(g, x, z, radius, strength)
}

func blurAt(g *terrain.Grid, x, z int) float64 {
	var sum float64
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			sum += float64(g.Get(x+dx, z+dz)) * smoothing3[dz+1][dx+1]
		}
	}
	return sum
}

// smoothWindow filters from a snapshot so the result does not depend on
// sweep order.
func smoothWindow(g *terrain.Grid, x, z, radius int, strength float64) {
	if radius < 0 || strength <= 0 {
		return
	}
	strength = math.Min(strength, 1)
	side := 2*radius + 1
	next := make([]float32, side*side)
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			h := float64(g.Get(x+dx, z+dz))
			next[(dz+radius)*side+dx+radius] = float32(h + strength*(blurAt(g, x+dx, z+dz)-h))
		}
	}
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			g.Set(x+dx, z+dz, next[(dz+radius)*side+dx+radius])
		}
	}
}
