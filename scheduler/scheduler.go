// Package scheduler decides, every tick and for each foot, whether the active
// brush deforms, stabilizes or smooths the terrain.
package scheduler

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pthm-cable/trail/brush"
	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/logger"
)

// Config holds the scheduling parameters. ContactTime is rewritten by the
// material presets every tick.
type Config struct {
	ContactTime       float64
	TimeOffset        float64
	MaxStabilizations int

	ApplyGaussianFilter bool
	Iterations          [2]int // smoothing passes per landing, indexed by foot
	SmoothStrength      float64
	SmoothRadius        int
	MaxGaussianFilters  int
}

// FromConfig builds a Config from the deformation section.
func FromConfig(cfg *config.Config) Config {
	d := cfg.Deformation
	return Config{
		ContactTime:         d.ContactTime,
		TimeOffset:          d.TimeOffset,
		MaxStabilizations:   d.MaxStabilizations,
		ApplyGaussianFilter: d.Gaussian.Apply,
		Iterations:          [2]int{d.Gaussian.IterationsLeft, d.Gaussian.IterationsRight},
		SmoothStrength:      d.Gaussian.Strength,
		SmoothRadius:        d.Gaussian.Radius,
		MaxGaussianFilters:  d.Gaussian.MaxFilters,
	}
}

// Window is the contact window after which deformation gives way to
// stabilization.
func (c Config) Window() float64 { return c.ContactTime + c.TimeOffset }

// Phase is the derived state of one foot.
type Phase uint8

const (
	Idle Phase = iota
	Deforming
	Stabilizing
)

func (p Phase) String() string {
	switch p {
	case Deforming:
		return "deforming"
	case Stabilizing:
		return "stabilizing"
	default:
		return "idle"
	}
}

// FootContactState is the per-foot scheduler state.
type FootContactState struct {
	Elapsed            float64 // seconds since the last landing
	StabilizationCount int
	GaussianCount      int

	// LiftOffX/LiftOffZ are the grid-local world position where the foot
	// last left the ground. HasLiftOff is false until the first lift-off.
	LiftOffX, LiftOffZ float64
	HasLiftOff         bool

	Deforming   bool
	Stabilizing bool
	WasGrounded bool

	PressureTime            float64 // grounded time inside the current window
	AccumulatedPressureTime float64
}

// Phase derives the foot's state from its flags.
func (s *FootContactState) Phase() Phase {
	switch {
	case s.Stabilizing:
		return Stabilizing
	case s.Deforming:
		return Deforming
	default:
		return Idle
	}
}

// Contact is the scheduler state of both feet, indexed by components.Foot.
type Contact [2]FootContactState

// Idle reports whether neither foot is deforming or stabilizing.
func (c *Contact) Idle() bool {
	return c[components.FootLeft].Phase() == Idle && c[components.FootRight].Phase() == Idle
}

// Events counts the brush calls issued for each foot during one Step.
type Events struct {
	Deforms    [2]int
	Stabilizes [2]int
	Smooths    [2]int
	Landed     [2]bool
	LiftedOff  [2]bool
}

// Total returns the number of brush calls of all kinds.
func (e Events) Total() int {
	n := 0
	for _, f := range components.Feet {
		n += e.Deforms[f] + e.Stabilizes[f] + e.Smooths[f]
	}
	return n
}

// Scheduler drives a brush from foot contact state.
type Scheduler struct {
	Config Config
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{Config: cfg}
}

// Step advances both feet by dt. A nil brush makes the tick a no-op. Brush
// errors do not stop the tick; they are combined and returned.
//
// Deform is called once per grounded foot inside its window. Brushes that
// implement brush.FootGate are told which foot issued each call.
func (s *Scheduler) Step(dt float64, c *Contact, feet [2]components.FootInput, b brush.Brush) (Events, error) {
	var ev Events
	if b == nil || c == nil {
		return ev, nil
	}

	left, right := feet[components.FootLeft].Position, feet[components.FootRight].Position
	var errs error

	for _, f := range components.Feet {
		st := &c[f]
		grounded := feet[f].Grounded
		st.Elapsed += dt

		if st.Elapsed <= s.Config.Window() {
			if grounded {
				if g, ok := b.(brush.FootGate); ok {
					g.Press(f)
				}
				if err := b.Deform(left.X, left.Z, right.X, right.Z); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("deform %s: %w", f, err))
				}
				ev.Deforms[f]++
				st.StabilizationCount = 0
				st.Stabilizing = false
				st.PressureTime += dt
				st.GaussianCount = 0
			}
		} else {
			st.Stabilizing = true
			st.Deforming = false
			if st.StabilizationCount <= s.Config.MaxStabilizations {
				if err := b.Stabilize(left.X, left.Z, right.X, right.Z); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("stabilize %s: %w", f, err))
				}
				ev.Stabilizes[f]++
				st.StabilizationCount++
			}
			st.AccumulatedPressureTime += st.PressureTime
			st.PressureTime = 0
		}

		switch {
		case !grounded && st.WasGrounded:
			p := feet[f].Position
			st.LiftOffX, st.LiftOffZ = p.X, p.Z
			st.HasLiftOff = true
			st.WasGrounded = false
			st.Deforming = false
			st.AccumulatedPressureTime += st.PressureTime
			st.PressureTime = 0
			ev.LiftedOff[f] = true
			logger.Debug("foot lifted off",
				zap.Stringer("foot", f),
				zap.Float64("x", p.X),
				zap.Float64("z", p.Z),
			)

		case grounded && !st.WasGrounded:
			if s.Config.ApplyGaussianFilter && st.HasLiftOff && st.GaussianCount < s.Config.MaxGaussianFilters {
				for i := 0; i < s.Config.Iterations[f]; i++ {
					if err := b.SmoothSingle(st.LiftOffX, st.LiftOffZ, s.Config.SmoothStrength, s.Config.SmoothRadius); err != nil {
						errs = multierr.Append(errs, fmt.Errorf("smooth %s: %w", f, err))
					}
					ev.Smooths[f]++
				}
				st.GaussianCount++
			}
			st.Elapsed = 0
			st.Deforming = true
			st.WasGrounded = true
			ev.Landed[f] = true
			logger.Debug("foot landed",
				zap.Stringer("foot", f),
				zap.Int("smooth_passes", ev.Smooths[f]),
			)
		}
	}

	return ev, errs
}
