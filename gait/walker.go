// Package gait produces synthetic bipedal foot kinematics for headless runs.
//
// A Walker moves its centre of mass in a straight line and alternates the
// feet through stance and swing. Foot heights follow their targets through
// damped springs, so landings arrive with a real downward velocity.
package gait

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/config"
)

// hipHeight is the centre-of-mass height above the ground.
const hipHeight = 0.9

// toeLag is the fraction of swing during which the toe stays down after the
// heel lifts.
const toeLag = 0.15

// Params are the walking parameters.
type Params struct {
	Speed           float64 // m/s along Forward; 0 stands still
	StepPeriod      float64 // full left+right cycle, seconds
	StanceFraction  float64 // share of the cycle each foot is planted
	StanceWidth     float64 // lateral distance between the feet
	LiftHeight      float64 // peak swing height
	ToeOffset       float64 // heel/toe distance from the foot centre
	GroundThreshold float64 // height below which a foot counts as grounded
	SpringFrequency float64
	SpringDamping   float64
}

// ParamsFromConfig converts the gait config section.
func ParamsFromConfig(cfg config.GaitConfig) Params {
	return Params{
		Speed:           cfg.Speed,
		StepPeriod:      cfg.StepPeriod,
		StanceFraction:  cfg.StanceFraction,
		StanceWidth:     cfg.StanceWidth,
		LiftHeight:      cfg.LiftHeight,
		ToeOffset:       cfg.ToeOffset,
		GroundThreshold: cfg.GroundThreshold,
		SpringFrequency: cfg.SpringFrequency,
		SpringDamping:   cfg.SpringDamping,
	}
}

// Ground returns the world terrain height at a world x/z.
type Ground func(x, z float64) float64

// Flat is a Ground at constant height.
func Flat(h float64) Ground {
	return func(float64, float64) float64 { return h }
}

type footState struct {
	heelH, heelV float64
	toeH, toeV   float64
	x            float64
	lateral      float64 // signed offset along the right axis
}

// Walker is one synthetic walker.
type Walker struct {
	p      Params
	dt     float64
	spring harmonica.Spring

	start   r3.Vec
	forward r3.Vec
	right   r3.Vec
	t       float64
	feet    [2]footState
}

// NewWalker places a walker at start, facing +X, with both feet planted.
func NewWalker(start r3.Vec, p Params, dt float64) *Walker {
	w := &Walker{
		p:       p,
		dt:      dt,
		spring:  harmonica.NewSpring(dt, p.SpringFrequency, p.SpringDamping),
		start:   start,
		forward: r3.Vec{X: 1},
		right:   r3.Vec{Z: 1},
	}
	w.feet[components.FootLeft].lateral = -p.StanceWidth / 2
	w.feet[components.FootRight].lateral = p.StanceWidth / 2
	for _, f := range components.Feet {
		w.feet[f].x = w.footX(f, 0)
	}
	return w
}

// Time returns the walker's elapsed time.
func (w *Walker) Time() float64 { return w.t }

// Idle reports whether the walker stands still.
func (w *Walker) Idle() bool { return w.p.Speed == 0 || w.p.StepPeriod <= 0 }

func (w *Walker) comX(t float64) float64 {
	return w.start.X + w.p.Speed*t
}

// phase returns the cycle index and the position within the cycle in [0,1)
// for foot f at time t. The right foot runs half a cycle behind the left.
func (w *Walker) phase(f components.Foot, t float64) (int, float64) {
	c := t/w.p.StepPeriod + 0.5*float64(f)
	k := math.Floor(c)
	return int(k), c - k
}

// plantX is where foot f is planted during cycle k: under the centre of
// mass at mid-stance.
func (w *Walker) plantX(f components.Foot, k int) float64 {
	ts := (float64(k) - 0.5*float64(f)) * w.p.StepPeriod
	return w.comX(ts + w.p.StanceFraction*w.p.StepPeriod/2)
}

func (w *Walker) footX(f components.Foot, t float64) float64 {
	if w.Idle() {
		return w.start.X
	}
	k, ph := w.phase(f, t)
	if ph < w.p.StanceFraction {
		return w.plantX(f, k)
	}
	s := smoothstep((ph - w.p.StanceFraction) / (1 - w.p.StanceFraction))
	from, to := w.plantX(f, k), w.plantX(f, k+1)
	return from + s*(to-from)
}

// targets returns the heel and toe target heights for foot f at time t.
func (w *Walker) targets(f components.Foot, t float64) (heel, toe float64) {
	if w.Idle() {
		return 0, 0
	}
	_, ph := w.phase(f, t)
	if ph < w.p.StanceFraction {
		return 0, 0
	}
	s := (ph - w.p.StanceFraction) / (1 - w.p.StanceFraction)
	heel = w.p.LiftHeight * math.Sin(math.Pi*s)
	if s > toeLag {
		toe = w.p.LiftHeight * math.Sin(math.Pi*(s-toeLag)/(1-toeLag))
	}
	return heel, toe
}

// Step advances the walker by one tick over ground and returns its gait.
func (w *Walker) Step(ground Ground) components.Gait {
	w.t += w.dt
	com := r3.Vec{X: w.comX(w.t), Z: w.start.Z}
	com.Y = ground(com.X, com.Z) + hipHeight

	g := components.Gait{COM: com, Forward: w.forward, Idle: w.Idle()}
	for _, f := range components.Feet {
		fs := &w.feet[f]
		heelT, toeT := w.targets(f, w.t)
		fs.heelH, fs.heelV = w.spring.Update(fs.heelH, fs.heelV, heelT)
		fs.toeH, fs.toeV = w.spring.Update(fs.toeH, fs.toeV, toeT)

		// Impact velocity is reported before the ground stops the foot.
		heelV, toeV := fs.heelV, fs.toeV
		if fs.heelH < 0 {
			fs.heelH, fs.heelV = 0, 0
		}
		if fs.toeH < 0 {
			fs.toeH, fs.toeV = 0, 0
		}

		x := w.footX(f, w.t)
		vx := (x - fs.x) / w.dt
		fs.x = x

		centre := r3.Add(r3.Vec{X: x, Z: w.start.Z}, r3.Scale(fs.lateral, w.right))
		gy := ground(centre.X, centre.Z)
		heel := r3.Sub(centre, r3.Scale(w.p.ToeOffset, w.forward))
		toe := r3.Add(centre, r3.Scale(w.p.ToeOffset, w.forward))
		heel.Y = gy + fs.heelH
		toe.Y = gy + fs.toeH
		centre.Y = gy + math.Min(fs.heelH, fs.toeH)

		g.Feet[f] = components.FootInput{
			Position:     centre,
			Heel:         heel,
			Toe:          toe,
			HeelHeight:   fs.heelH,
			ToeHeight:    fs.toeH,
			Grounded:     math.Min(fs.heelH, fs.toeH) <= w.p.GroundThreshold,
			HeelVelocity: r3.Vec{X: vx, Y: heelV},
			ToeVelocity:  r3.Vec{X: vx, Y: toeV},
		}
	}
	return g
}

func smoothstep(s float64) float64 {
	s = math.Max(0, math.Min(1, s))
	return s * s * (3 - 2*s)
}
