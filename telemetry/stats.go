package telemetry

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/trail/logger"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Walkers int `csv:"walkers"`

	// Contact events during window
	Landings    int `csv:"landings"`
	LiftOffs    int `csv:"lift_offs"`
	Deforms     int `csv:"deforms"`
	Stabilizes  int `csv:"stabilizes"`
	Smooths     int `csv:"smooths"`
	BrushErrors int `csv:"brush_errors"`

	// Share of walker-ticks each foot was grounded
	GroundedLeft  float64 `csv:"grounded_left"`
	GroundedRight float64 `csv:"grounded_right"`

	// Vertical ground reaction force per grounded foot-tick, N
	GRFMean float64 `csv:"grf_mean"`
	GRFStd  float64 `csv:"grf_std"`
	GRFP10  float64 `csv:"grf_p10"`
	GRFP50  float64 `csv:"grf_p50"`
	GRFP90  float64 `csv:"grf_p90"`
	GRFPeak float64 `csv:"grf_peak"`

	// Pressure under stamped feet, Pa
	PressureMean float64 `csv:"pressure_mean"`
	PressurePeak float64 `csv:"pressure_peak"`

	// Terrain at window end, world units
	HeightMin       float64 `csv:"height_min"`
	HeightMean      float64 `csv:"height_mean"`
	DisplacedVolume float64 `csv:"displaced_volume"` // net volume pushed below the initial surface

	Exports int `csv:"exports"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summary is the distribution of a sample.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// Summarize computes mean, sample standard deviation, percentiles and max.
// values is not modified.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var s Summary
	if n == 1 {
		s.Mean = sorted[0]
	} else {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	}
	s.P10 = Percentile(sorted, 0.10)
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	s.Max = floats.Max(sorted)
	return s
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s WindowStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt32("window_start", s.WindowStartTick)
	enc.AddInt32("window_end", s.WindowEndTick)
	enc.AddFloat64("sim_time", s.SimTimeSec)
	enc.AddInt("walkers", s.Walkers)
	enc.AddInt("landings", s.Landings)
	enc.AddInt("lift_offs", s.LiftOffs)
	enc.AddInt("deforms", s.Deforms)
	enc.AddInt("stabilizes", s.Stabilizes)
	enc.AddInt("smooths", s.Smooths)
	enc.AddInt("brush_errors", s.BrushErrors)
	enc.AddFloat64("grounded_left", s.GroundedLeft)
	enc.AddFloat64("grounded_right", s.GroundedRight)
	enc.AddFloat64("grf_mean", s.GRFMean)
	enc.AddFloat64("grf_std", s.GRFStd)
	enc.AddFloat64("grf_p10", s.GRFP10)
	enc.AddFloat64("grf_p50", s.GRFP50)
	enc.AddFloat64("grf_p90", s.GRFP90)
	enc.AddFloat64("grf_peak", s.GRFPeak)
	enc.AddFloat64("pressure_mean", s.PressureMean)
	enc.AddFloat64("pressure_peak", s.PressurePeak)
	enc.AddFloat64("height_min", s.HeightMin)
	enc.AddFloat64("height_mean", s.HeightMean)
	enc.AddFloat64("displaced_volume", s.DisplacedVolume)
	enc.AddInt("exports", s.Exports)
	return nil
}

// LogStats logs the window stats.
func (s WindowStats) LogStats() {
	logger.Info("stats", zap.Inline(s))
}
