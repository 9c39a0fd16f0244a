package terrain

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is the continuous terrain surface. Coordinates are normalized to
// [0,1] across the terrain; values outside are clamped.
type Surface interface {
	Height(u, v float64) float64
	Steepness(u, v float64) float64 // degrees from horizontal
	Normal(u, v float64) r3.Vec     // unit length, Y up
}

// bilinearSurface samples the live grid.
type bilinearSurface struct {
	g *Grid
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// sample returns the world height at fractional, clamped cell coordinates.
func (s *bilinearSurface) sample(fx, fz float64) float64 {
	g := s.g
	fx = math.Max(0, math.Min(float64(g.W-1), fx))
	fz = math.Max(0, math.Min(float64(g.H-1), fz))

	x0, z0 := int(fx), int(fz)
	x1, z1 := min(x0+1, g.W-1), min(z0+1, g.H-1)
	tx, tz := fx-float64(x0), fz-float64(z0)

	h00 := float64(g.data[z0*g.W+x0])
	h10 := float64(g.data[z0*g.W+x1])
	h01 := float64(g.data[z1*g.W+x0])
	h11 := float64(g.data[z1*g.W+x1])

	top := h00 + (h10-h00)*tx
	bot := h01 + (h11-h01)*tx
	return (top + (bot-top)*tz) * g.scale.Y
}

func (s *bilinearSurface) Height(u, v float64) float64 {
	g := s.g
	return s.sample(clamp01(u)*float64(g.W-1), clamp01(v)*float64(g.H-1))
}

func (s *bilinearSurface) Normal(u, v float64) r3.Vec {
	g := s.g
	fx := clamp01(u) * float64(g.W-1)
	fz := clamp01(v) * float64(g.H-1)

	dhdx := (s.sample(fx+1, fz) - s.sample(fx-1, fz)) / (2 * g.scale.X)
	dhdz := (s.sample(fx, fz+1) - s.sample(fx, fz-1)) / (2 * g.scale.Z)
	return r3.Unit(r3.Vec{X: -dhdx, Y: 1, Z: -dhdz})
}

func (s *bilinearSurface) Steepness(u, v float64) float64 {
	n := s.Normal(u, v)
	return math.Acos(math.Max(-1, math.Min(1, n.Y))) * 180 / math.Pi
}
