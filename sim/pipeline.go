package sim

import (
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/brush"
	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/forces"
	"github.com/pthm-cable/trail/logger"
	"github.com/pthm-cable/trail/telemetry"
	"github.com/pthm-cable/trail/terrain"
)

// flatFootEps is the heel/toe height difference below which a foot is flat.
const flatFootEps = 1e-4

var up = r3.Vec{Y: 1}

// Step advances the simulation by one tick.
func (s *Sim) Step() {
	s.perf.StartTick()
	s.tick++
	s.simTime += s.dt

	s.perf.StartPhase(telemetry.PhaseGait)
	s.updateGait()

	s.perf.StartPhase(telemetry.PhaseSensing)
	s.updateSensing()

	s.perf.StartPhase(telemetry.PhaseMaterials)
	s.updateMaterials()

	s.perf.StartPhase(telemetry.PhaseForces)
	s.updateForces()

	s.perf.StartPhase(telemetry.PhaseScheduler)
	s.updateContacts()

	s.perf.StartPhase(telemetry.PhaseExport)
	s.updateExport()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.recordTelemetry()
	s.flushTelemetry()

	s.perf.EndTick()
}

// ground returns the live terrain height, or zero with nothing bound.
func (s *Sim) ground(x, z float64) float64 {
	if s.grid == nil {
		return 0
	}
	return s.grid.HeightAtWorld(x, z)
}

// updateGait advances every gait driver. The previous force application
// point is carried over so a level, tilted foot keeps it.
func (s *Sim) updateGait() {
	query := s.walkerFilter.Query()
	for query.Next() {
		w, _, g, _, _, _ := query.Get()

		driver := s.drivers[w.ID]
		if driver == nil {
			continue
		}
		prev := g.Feet
		*g = driver.Step(s.ground)
		for _, f := range components.Feet {
			g.Feet[f].Origin = prev[f].Origin
		}
	}
}

// updateSensing samples the slope under each walker and derives the
// per-foot inputs of the force model.
func (s *Sim) updateSensing() {
	query := s.walkerFilter.Query()
	for query.Next() {
		_, _, g, sensing, _, _ := query.Get()

		if s.grid != nil {
			sensing.Slope = terrain.Sense(s.grid, s.initial, g.COM, g.Forward)
		} else {
			sensing.Slope = terrain.Slope{Normal: up, InitialNormal: up}
		}

		left, right := &g.Feet[components.FootLeft], &g.Feet[components.FootRight]
		left.Distribution, right.Distribution = forces.WeightDistribution(g.COM, left.Position, right.Position)

		for _, f := range components.Feet {
			in := &g.Feet[f]
			in.VelocityDown, in.VelocityUp = forces.SplitVelocity(
				in.HeelVelocity, in.ToeVelocity, in.HeelHeight, in.ToeHeight, sensing.Slope.Normal)
			flat := math.Abs(in.HeelHeight-in.ToeHeight) < flatFootEps
			in.Origin = forces.ContactOrigin(in.Heel, in.Toe, in.Position, in.HeelHeight, in.ToeHeight, flat, in.Origin)
		}
	}
}

// updateMaterials hands the material parameters for the bound terrain to
// the active footprint and the scheduler.
func (s *Sim) updateMaterials() {
	if s.footprint == nil {
		return
	}
	prev := s.preset.Tag
	s.preset = s.source.Apply(s.grid.Tag(), s.footprint.State(), &s.sched.Config)
	if s.preset.Tag != prev {
		logger.Info("material preset",
			zap.String("tag", s.preset.Tag),
			zap.Float64("young_modulus", s.preset.YoungModulus),
			zap.Float64("contact_time", s.sched.Config.ContactTime),
		)
	}
}

// updateForces runs the force model for every walker.
func (s *Sim) updateForces() {
	query := s.walkerFilter.Query()
	for query.Next() {
		w, body, g, sensing, res, _ := query.Get()

		in := forces.Input{
			Mass:               body.Mass,
			Gravity:            body.Gravity,
			ContactTime:        s.sched.Config.ContactTime,
			SlopeNormal:        sensing.Slope.Normal,
			InitialSlopeNormal: sensing.Slope.InitialNormal,
		}
		for _, f := range components.Feet {
			in.Grounded[f] = g.Feet[f].Grounded
			in.Distribution[f] = g.Feet[f].Distribution
			in.VelocityDown[f] = g.Feet[f].VelocityDown
		}

		out, err := forces.Compute(in)
		if err != nil {
			logger.Warn("force model failed", zap.Uint32("walker", w.ID), zap.Error(err))
			*res = forces.Result{}
			continue
		}
		*res = out
	}
}

// updateContacts feeds this tick's contact to the brush, runs the
// scheduler and accumulates pressure, one walker at a time.
func (s *Sim) updateContacts() {
	var state *brush.State
	if s.footprint != nil {
		state = s.footprint.State()
	}
	b := s.slot.Brush()

	query := s.walkerFilter.Query()
	for query.Next() {
		w, _, g, _, res, contact := query.Get()

		// Deforming stays clear; the scheduler presses one foot per Deform.
		if state != nil {
			state.BeginTick(brush.Contact{
				Grounded: [2]bool{g.Feet[components.FootLeft].Grounded, g.Feet[components.FootRight].Grounded},
				VerticalForce: [2]float64{
					res.VerticalMagnitude(components.FootLeft),
					res.VerticalMagnitude(components.FootRight),
				},
				ContactTime: s.sched.Config.ContactTime,
				DT:          s.dt,
			})
		}

		ev, err := s.sched.Step(s.dt, contact, g.Feet, b)
		s.collector.RecordEvents(ev)
		if err != nil {
			for range multierr.Errors(err) {
				s.collector.RecordBrushError()
			}
			logger.Warn("brush call failed", zap.Uint32("walker", w.ID), zap.Error(err))
		}

		for _, f := range components.Feet {
			if ev.Landed[f] {
				p := g.Feet[f].Position
				s.footfalls = append(s.footfalls, telemetry.NewLandingEvent(
					s.tick, s.simTime, w.ID, f, p.X, p.Z, res.VerticalMagnitude(f)))
				s.tracker.RecordLanding(w.ID)
			}
			if ev.LiftedOff[f] {
				c := &contact[f]
				s.footfalls = append(s.footfalls, telemetry.NewLiftOffEvent(
					s.tick, s.simTime, w.ID, f, c.LiftOffX, c.LiftOffZ))
				s.tracker.RecordLiftOff(w.ID)
			}
		}
		s.tracker.SetStampTime(w.ID,
			contact[components.FootLeft].AccumulatedPressureTime+contact[components.FootRight].AccumulatedPressureTime)

		for _, f := range components.Feet {
			var pressure float64
			if state != nil {
				pressure = state.Pressure(f)
			}
			s.collector.RecordPressure(pressure)
			if s.cfg.Telemetry.PerTickForces {
				s.forceLog = append(s.forceLog, telemetry.NewForceRecord(
					s.tick, w.ID, f, g.Feet[f].Grounded, res.Feet[f], pressure))
			}
		}
		if s.exporter != nil {
			s.exporter.Accumulate(g.Idle)
		}
	}
}

// updateExport runs the interval export, timed from when the terrain was
// bound.
func (s *Sim) updateExport() {
	if s.exporter == nil {
		return
	}
	exported, err := s.exporter.Step(s.simTime - s.boundAt)
	if exported {
		s.collector.RecordExport()
	}
	if err != nil {
		logger.Error("map export failed", zap.Error(err))
	}
}
