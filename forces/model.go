// Package forces estimates the forces a walking body exerts on the terrain
// through each foot.
//
// The model is a pure function of the per-tick input: it keeps no state
// between calls.
package forces

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
)

var (
	// ErrContactTime is returned for a non-positive contact time.
	ErrContactTime = errors.New("contact time must be positive")
	// ErrSlopeNormal is returned for a zero slope normal.
	ErrSlopeNormal = errors.New("slope normal must be non-zero")
)

// Input is everything the model needs for one tick.
type Input struct {
	Mass        float64
	Gravity     r3.Vec
	ContactTime float64

	Grounded     [2]bool
	Distribution [2]float64 // used only when both feet are grounded
	VelocityDown [2]r3.Vec

	SlopeNormal        r3.Vec // current surface under the body
	InitialSlopeNormal r3.Vec // before any deformation
}

// FootForces holds every force estimated for one foot.
type FootForces struct {
	Fraction float64 // share of body weight carried

	Weight   r3.Vec
	Impulse  r3.Vec
	Momentum r3.Vec
	GRF      r3.Vec // ground reaction force
	Foot     r3.Vec // force of the foot on the ground, -GRF
	// Foot force projected onto the original (undeformed) slope plane.
	FootOnTerrain r3.Vec

	WeightParts   Parts
	MomentumParts Parts
	GRFParts      Parts
	FootParts     Parts
}

func (f FootForces) add(g FootForces) FootForces {
	return FootForces{
		Fraction:      f.Fraction + g.Fraction,
		Weight:        r3.Add(f.Weight, g.Weight),
		Impulse:       r3.Add(f.Impulse, g.Impulse),
		Momentum:      r3.Add(f.Momentum, g.Momentum),
		GRF:           r3.Add(f.GRF, g.GRF),
		Foot:          r3.Add(f.Foot, g.Foot),
		FootOnTerrain: r3.Add(f.FootOnTerrain, g.FootOnTerrain),
		WeightParts:   f.WeightParts.add(g.WeightParts),
		MomentumParts: f.MomentumParts.add(g.MomentumParts),
		GRFParts:      f.GRFParts.add(g.GRFParts),
		FootParts:     f.FootParts.add(g.FootParts),
	}
}

// Result is the model output for one tick.
type Result struct {
	BodyWeight r3.Vec // mass * gravity
	Feet       [2]FootForces
	Total      FootForces // left + right
}

// VerticalMagnitude is the magnitude of the foot force component into the terrain.
func (r *Result) VerticalMagnitude(f components.Foot) float64 {
	return r3.Norm(r.Feet[f].FootParts.Vertical)
}

// Fractions returns the share of body weight each foot carries. A lone
// grounded foot carries everything; airborne feet carry nothing.
func Fractions(grounded [2]bool, dist [2]float64) [2]float64 {
	switch {
	case grounded[components.FootLeft] && grounded[components.FootRight]:
		return dist
	case grounded[components.FootLeft]:
		return [2]float64{1, 0}
	case grounded[components.FootRight]:
		return [2]float64{0, 1}
	default:
		return [2]float64{}
	}
}

// Compute runs the model.
func Compute(in Input) (Result, error) {
	if in.ContactTime <= 0 {
		return Result{}, fmt.Errorf("%w: got %v", ErrContactTime, in.ContactTime)
	}
	if r3.Norm2(in.SlopeNormal) == 0 || r3.Norm2(in.InitialSlopeNormal) == 0 {
		return Result{}, ErrSlopeNormal
	}

	res := Result{BodyWeight: r3.Scale(in.Mass, in.Gravity)}
	frac := Fractions(in.Grounded, in.Distribution)

	for _, f := range components.Feet {
		ff := FootForces{Fraction: frac[f]}
		ff.Weight = r3.Scale(frac[f], res.BodyWeight)
		// Foot comes to rest over the contact time: impulse = m*(0 - v).
		ff.Impulse = r3.Scale(-in.Mass*frac[f], in.VelocityDown[f])
		ff.Momentum = r3.Scale(1/in.ContactTime, ff.Impulse)
		ff.GRF = r3.Sub(ff.Momentum, ff.Weight)
		ff.Foot = r3.Scale(-1, ff.GRF)
		ff.FootOnTerrain = ProjectOnPlane(ff.Foot, in.InitialSlopeNormal)

		ff.WeightParts = Decompose(ff.Weight, in.SlopeNormal)
		ff.MomentumParts = Decompose(ff.Momentum, in.SlopeNormal)
		ff.GRFParts = Decompose(ff.GRF, in.SlopeNormal)
		ff.FootParts = ff.GRFParts.Neg()

		res.Feet[f] = ff
	}
	res.Total = res.Feet[components.FootLeft].add(res.Feet[components.FootRight])

	return res, nil
}
