package forces

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// WeightDistribution splits body weight between the feet from where the
// centre of mass projects between them on the ground plane. The foot nearer
// the projection carries more.
func WeightDistribution(com, left, right r3.Vec) (leftFrac, rightFrac float64) {
	flat := func(v r3.Vec) r3.Vec { return r3.Vec{X: v.X, Z: v.Z} }
	span := r3.Norm(r3.Sub(flat(right), flat(left)))
	if span < 1e-9 {
		return 0.5, 0.5
	}
	rightFrac = r3.Norm(r3.Sub(flat(com), flat(left))) / span
	rightFrac = math.Max(0, math.Min(1, rightFrac))
	return 1 - rightFrac, rightFrac
}

// SplitVelocity picks the velocity of whichever of heel or toe is lower and
// classifies it against the slope normal: moving into the surface is "down",
// anything else is "up". The other return is zero.
func SplitVelocity(heelVel, toeVel r3.Vec, heelHeight, toeHeight float64, normal r3.Vec) (downVel, upVel r3.Vec) {
	v := toeVel
	if heelHeight < toeHeight {
		v = heelVel
	}
	if r3.Dot(v, normal) < 0 {
		return v, r3.Vec{}
	}
	return r3.Vec{}, v
}

// ContactOrigin chooses where the foot force is applied. A flat foot pushes
// through its centre; otherwise through whichever of heel or toe is lower.
// When heel and toe are level but the foot is not flat, prev is kept.
func ContactOrigin(heel, toe, centre r3.Vec, heelHeight, toeHeight float64, flat bool, prev r3.Vec) r3.Vec {
	switch {
	case flat:
		return centre
	case heelHeight < toeHeight:
		return heel
	case heelHeight > toeHeight:
		return toe
	default:
		return prev
	}
}
