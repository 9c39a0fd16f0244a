package forces

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
)

var (
	flat    = r3.Vec{Y: 1}
	gravity = r3.Vec{Y: -9.81}
)

func vecNear(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}

func TestStandingStill(t *testing.T) {
	res, err := Compute(Input{
		Mass:               70,
		Gravity:            gravity,
		ContactTime:        0.1,
		Grounded:           [2]bool{true, true},
		Distribution:       [2]float64{0.5, 0.5},
		SlopeNormal:        flat,
		InitialSlopeNormal: flat,
	})
	if err != nil {
		t.Fatal(err)
	}

	half := 70 * 9.81 / 2
	for _, f := range components.Feet {
		ff := res.Feet[f]
		if !vecNear(ff.Weight, r3.Vec{Y: -half}, 1e-9) {
			t.Errorf("%s weight = %+v", f, ff.Weight)
		}
		if !vecNear(ff.GRF, r3.Vec{Y: half}, 1e-9) {
			t.Errorf("%s GRF = %+v, want (0, %v, 0)", f, ff.GRF, half)
		}
		if !vecNear(ff.Foot, r3.Vec{Y: -half}, 1e-9) {
			t.Errorf("%s foot force = %+v", f, ff.Foot)
		}
		if !vecNear(ff.FootParts.Vertical, ff.Foot, 1e-9) {
			t.Errorf("%s vertical part = %+v, want whole foot force", f, ff.FootParts.Vertical)
		}
		if r3.Norm(ff.FootParts.Downward) > 1e-9 || r3.Norm(ff.FootParts.Horizontal) > 1e-9 {
			t.Errorf("%s has in-plane parts on flat ground: %+v", f, ff.FootParts)
		}
		if m := res.VerticalMagnitude(f); math.Abs(m-half) > 1e-9 {
			t.Errorf("%s vertical magnitude = %v", f, m)
		}
	}

	if !vecNear(res.Total.GRF, r3.Vec{Y: 70 * 9.81}, 1e-9) {
		t.Errorf("total GRF = %+v", res.Total.GRF)
	}
	if !vecNear(res.Total.Weight, res.BodyWeight, 1e-9) {
		t.Errorf("total weight %+v != body weight %+v", res.Total.Weight, res.BodyWeight)
	}
}

func TestWeightFractions(t *testing.T) {
	dist := [2]float64{0.3, 0.7}
	tests := []struct {
		name     string
		grounded [2]bool
		want     [2]float64
	}{
		{"both", [2]bool{true, true}, dist},
		{"left only", [2]bool{true, false}, [2]float64{1, 0}},
		{"right only", [2]bool{false, true}, [2]float64{0, 1}},
		{"airborne", [2]bool{false, false}, [2]float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(Input{
				Mass: 80, Gravity: gravity, ContactTime: 0.2,
				Grounded: tt.grounded, Distribution: dist,
				SlopeNormal: flat, InitialSlopeNormal: flat,
			})
			if err != nil {
				t.Fatal(err)
			}
			for _, f := range components.Feet {
				if res.Feet[f].Fraction != tt.want[f] {
					t.Errorf("%s fraction = %v, want %v", f, res.Feet[f].Fraction, tt.want[f])
				}
				if !vecNear(res.Feet[f].Weight, r3.Scale(tt.want[f], res.BodyWeight), 1e-9) {
					t.Errorf("%s weight = %+v", f, res.Feet[f].Weight)
				}
			}
			if tt.grounded == [2]bool{} && r3.Norm(res.Total.Foot) != 0 {
				t.Errorf("airborne body produced foot force %+v", res.Total.Foot)
			}
		})
	}
}

func TestLandingMomentum(t *testing.T) {
	res, err := Compute(Input{
		Mass: 70, Gravity: gravity, ContactTime: 0.2,
		Grounded:     [2]bool{true, false},
		VelocityDown: [2]r3.Vec{{Y: -2}, {Y: -5}},
		SlopeNormal:  flat, InitialSlopeNormal: flat,
	})
	if err != nil {
		t.Fatal(err)
	}
	left := res.Feet[components.FootLeft]
	if !vecNear(left.Impulse, r3.Vec{Y: 140}, 1e-9) {
		t.Errorf("impulse = %+v", left.Impulse)
	}
	if !vecNear(left.Momentum, r3.Vec{Y: 700}, 1e-9) {
		t.Errorf("momentum = %+v", left.Momentum)
	}
	if !vecNear(left.GRF, r3.Vec{Y: 700 + 686.7}, 1e-9) {
		t.Errorf("GRF = %+v", left.GRF)
	}
	// Right carries no weight, so its downward velocity contributes nothing.
	if r3.Norm(res.Feet[components.FootRight].Momentum) != 0 {
		t.Errorf("right momentum = %+v", res.Feet[components.FootRight].Momentum)
	}
}

func TestComputeRejects(t *testing.T) {
	for _, ct := range []float64{0, -0.1} {
		_, err := Compute(Input{Mass: 1, ContactTime: ct, SlopeNormal: flat, InitialSlopeNormal: flat})
		if !errors.Is(err, ErrContactTime) {
			t.Errorf("contact time %v: got %v", ct, err)
		}
	}
	_, err := Compute(Input{Mass: 1, ContactTime: 0.1, InitialSlopeNormal: flat})
	if !errors.Is(err, ErrSlopeNormal) {
		t.Errorf("zero normal: got %v", err)
	}
}

func TestTerrainProjectionUsesInitialNormal(t *testing.T) {
	tilted := r3.Unit(r3.Vec{X: 1, Y: 1})
	res, err := Compute(Input{
		Mass: 70, Gravity: gravity, ContactTime: 0.1,
		Grounded:     [2]bool{true, false},
		SlopeNormal:  flat,
		InitialSlopeNormal: tilted,
	})
	if err != nil {
		t.Fatal(err)
	}
	proj := res.Feet[components.FootLeft].FootOnTerrain
	if math.Abs(r3.Dot(proj, tilted)) > 1e-9 {
		t.Errorf("projection %+v not in the initial slope plane", proj)
	}
}

func TestDecompositionReconstructs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	randVec := func() r3.Vec {
		return r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
	}

	normals := []r3.Vec{flat, {Y: -1}, {X: 1}, {Y: 3}}
	for i := 0; i < 200; i++ {
		normals = append(normals, randVec())
	}
	for _, n := range normals {
		if r3.Norm(n) < 1e-3 {
			continue
		}
		for j := 0; j < 5; j++ {
			f := r3.Scale(100, randVec())
			p := Decompose(f, n)
			if !vecNear(p.Sum(), f, 1e-9*math.Max(1, r3.Norm(f))) {
				t.Fatalf("Decompose(%+v, %+v) sums to %+v", f, n, p.Sum())
			}
			if math.Abs(r3.Dot(p.Downward, p.Horizontal)) > 1e-6 {
				t.Fatalf("in-plane parts not orthogonal for n=%+v", n)
			}
		}
	}
}

func TestSlopedDecomposition(t *testing.T) {
	// 45 degree slope falling toward +x.
	n := r3.Unit(r3.Vec{X: 1, Y: 1})
	f := r3.Vec{Y: -10}
	p := Decompose(f, n)

	if math.Abs(r3.Norm(p.Vertical)-10/math.Sqrt2) > 1e-9 {
		t.Errorf("vertical magnitude = %v", r3.Norm(p.Vertical))
	}
	if math.Abs(r3.Norm(p.Downward)-10/math.Sqrt2) > 1e-9 {
		t.Errorf("downward magnitude = %v", r3.Norm(p.Downward))
	}
	if r3.Norm(p.Horizontal) > 1e-9 {
		t.Errorf("gravity should have no cross-slope part, got %+v", p.Horizontal)
	}
	if p.Downward.X <= 0 {
		t.Errorf("downward part should point downhill, got %+v", p.Downward)
	}
}
