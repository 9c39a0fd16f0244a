package telemetry

import (
	"math"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/forces"
	"github.com/pthm-cable/trail/scheduler"
	"github.com/pthm-cable/trail/terrain"
)

// Collector accumulates per-tick samples within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	windowStartTick int32

	// Event counters for current window
	landings    int
	liftOffs    int
	deforms     int
	stabilizes  int
	smooths     int
	brushErrors int
	exports     int

	walkerTicks int
	grounded    [2]int

	grf      []float64
	pressure []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec/dt + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordEvents adds one walker's scheduler events for a tick.
func (c *Collector) RecordEvents(ev scheduler.Events) {
	for _, f := range components.Feet {
		c.deforms += ev.Deforms[f]
		c.stabilizes += ev.Stabilizes[f]
		c.smooths += ev.Smooths[f]
		if ev.Landed[f] {
			c.landings++
		}
		if ev.LiftedOff[f] {
			c.liftOffs++
		}
	}
}

// RecordContact samples one walker's grounded flags and, for grounded feet,
// the vertical foot force.
func (c *Collector) RecordContact(g *components.Gait, res *forces.Result) {
	c.walkerTicks++
	for _, f := range components.Feet {
		if !g.Feet[f].Grounded {
			continue
		}
		c.grounded[f]++
		if res != nil {
			c.grf = append(c.grf, res.VerticalMagnitude(f))
		}
	}
}

// RecordPressure samples a stamped foot's pressure. Zero is ignored.
func (c *Collector) RecordPressure(p float64) {
	if p > 0 {
		c.pressure = append(c.pressure, p)
	}
}

// RecordBrushError counts a failed brush call.
func (c *Collector) RecordBrushError() {
	c.brushErrors++
}

// RecordExport counts a map export.
func (c *Collector) RecordExport() {
	c.exports++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// TerrainSummary describes the grid at the end of a window.
type TerrainSummary struct {
	HeightMin       float64
	HeightMean      float64
	DisplacedVolume float64
}

// SummarizeTerrain scans the grid once.
func SummarizeTerrain(g *terrain.Grid) TerrainSummary {
	if g == nil {
		return TerrainSummary{}
	}
	s := TerrainSummary{HeightMin: math.Inf(1)}
	var sum, displaced float64
	for z := 0; z < g.H; z++ {
		for x := 0; x < g.W; x++ {
			h := float64(g.Get(x, z))
			sum += h
			s.HeightMin = math.Min(s.HeightMin, h)
			displaced += float64(g.GetConstant(x, z)) - h
		}
	}
	s.HeightMean = sum / float64(g.W*g.H)
	s.DisplacedVolume = displaced * g.CellArea()
	return s
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, walkers int, ts TerrainSummary) WindowStats {
	grf := Summarize(c.grf)
	pressure := Summarize(c.pressure)

	var groundedL, groundedR float64
	if c.walkerTicks > 0 {
		groundedL = float64(c.grounded[components.FootLeft]) / float64(c.walkerTicks)
		groundedR = float64(c.grounded[components.FootRight]) / float64(c.walkerTicks)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Walkers: walkers,

		Landings:    c.landings,
		LiftOffs:    c.liftOffs,
		Deforms:     c.deforms,
		Stabilizes:  c.stabilizes,
		Smooths:     c.smooths,
		BrushErrors: c.brushErrors,

		GroundedLeft:  groundedL,
		GroundedRight: groundedR,

		GRFMean: grf.Mean,
		GRFStd:  grf.Std,
		GRFP10:  grf.P10,
		GRFP50:  grf.P50,
		GRFP90:  grf.P90,
		GRFPeak: grf.Max,

		PressureMean: pressure.Mean,
		PressurePeak: pressure.Max,

		HeightMin:       ts.HeightMin,
		HeightMean:      ts.HeightMean,
		DisplacedVolume: ts.DisplacedVolume,

		Exports: c.exports,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.landings = 0
	c.liftOffs = 0
	c.deforms = 0
	c.stabilizes = 0
	c.smooths = 0
	c.brushErrors = 0
	c.exports = 0
	c.walkerTicks = 0
	c.grounded = [2]int{}
	c.grf = c.grf[:0]
	c.pressure = c.pressure[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
