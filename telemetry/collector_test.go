package telemetry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/forces"
	"github.com/pthm-cable/trail/scheduler"
	"github.com/pthm-cable/trail/terrain"
)

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(1.0, 0.125)
	if c.WindowDurationTicks() != 8 {
		t.Fatalf("ticks per window = %d, want 8", c.WindowDurationTicks())
	}

	g := &components.Gait{}
	g.Feet[components.FootLeft].Grounded = true
	res := &forces.Result{}
	res.Feet[components.FootLeft].FootParts.Vertical = r3.Vec{Y: -600}

	for tick := int32(0); tick < 8; tick++ {
		if c.ShouldFlush(tick) {
			t.Fatalf("flush due early at tick %d", tick)
		}
		c.RecordContact(g, res)
		c.RecordEvents(scheduler.Events{
			Deforms:    [2]int{1, 0},
			Stabilizes: [2]int{0, 1},
		})
	}
	c.RecordEvents(scheduler.Events{
		Smooths:   [2]int{0, 2},
		Landed:    [2]bool{false, true},
		LiftedOff: [2]bool{true, false},
	})
	c.RecordPressure(0)
	c.RecordPressure(2000)
	c.RecordPressure(4000)
	c.RecordBrushError()
	c.RecordExport()

	if !c.ShouldFlush(8) {
		t.Fatal("expected flush at tick 8")
	}

	stats := c.Flush(8, 1, TerrainSummary{HeightMin: 0.5})

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 8 || stats.SimTimeSec != 1 {
		t.Errorf("window = %d..%d @ %v", stats.WindowStartTick, stats.WindowEndTick, stats.SimTimeSec)
	}
	if stats.Deforms != 8 || stats.Stabilizes != 8 || stats.Smooths != 2 {
		t.Errorf("brush counts = %d/%d/%d", stats.Deforms, stats.Stabilizes, stats.Smooths)
	}
	if stats.Landings != 1 || stats.LiftOffs != 1 {
		t.Errorf("landings/lift-offs = %d/%d", stats.Landings, stats.LiftOffs)
	}
	if stats.GroundedLeft != 1 || stats.GroundedRight != 0 {
		t.Errorf("grounded = %v/%v", stats.GroundedLeft, stats.GroundedRight)
	}
	if stats.GRFMean != 600 || stats.GRFPeak != 600 || stats.GRFStd != 0 {
		t.Errorf("grf = mean %v peak %v std %v", stats.GRFMean, stats.GRFPeak, stats.GRFStd)
	}
	if stats.PressureMean != 3000 || stats.PressurePeak != 4000 {
		t.Errorf("pressure = %v/%v", stats.PressureMean, stats.PressurePeak)
	}
	if stats.BrushErrors != 1 || stats.Exports != 1 || stats.HeightMin != 0.5 {
		t.Errorf("stats = %+v", stats)
	}

	// Counters reset.
	next := c.Flush(16, 1, TerrainSummary{})
	if next.WindowStartTick != 8 || next.Deforms != 0 || next.GRFPeak != 0 || next.GroundedLeft != 0 {
		t.Errorf("second window = %+v", next)
	}
}

func TestSummarizeTerrain(t *testing.T) {
	heights := make([]float32, 9)
	for i := range heights {
		heights[i] = 0.5
	}
	// 3 samples over 2 units: one world unit per cell. Height scale 2.
	g, err := terrain.NewGrid(terrain.GridOptions{
		Resolution: 3,
		Size:       r3.Vec{X: 2, Y: 2, Z: 2},
		Heights:    heights,
	})
	if err != nil {
		t.Fatal(err)
	}
	g.Set(1, 1, 0.5)

	s := SummarizeTerrain(g)
	if s.HeightMin != 0.5 {
		t.Errorf("min = %v, want 0.5", s.HeightMin)
	}
	if want := 8.5 / 9; math.Abs(s.HeightMean-want) > 1e-9 {
		t.Errorf("mean = %v, want %v", s.HeightMean, want)
	}
	if s.DisplacedVolume != 0.5 {
		t.Errorf("displaced = %v, want 0.5", s.DisplacedVolume)
	}

	if got := SummarizeTerrain(nil); got != (TerrainSummary{}) {
		t.Errorf("nil grid = %+v", got)
	}
}
