package main

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/sim"
	"github.com/pthm-cable/trail/telemetry"
	"github.com/pthm-cable/trail/terrain"
)

// Target is the footprint the preset should reproduce. A zero Volume is
// not scored.
type Target struct {
	Sink   float64 // deepest cell below its initial height, world units
	Volume float64 // displaced volume
}

// Measurement is what one trial left behind in the terrain.
type Measurement struct {
	Sink     float64
	Volume   float64
	Landings int
}

// FitnessEvaluator runs headless walks and scores the resulting footprints.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	ticks      int
	resolution int
	seeds      []int64
	target     Target

	mu   sync.Mutex
	last Measurement // mean over seeds from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, ticks, resolution int, seeds []int64, target Target) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		ticks:      ticks,
		resolution: resolution,
		seeds:      seeds,
		target:     target,
	}
}

// LastMeasurement returns the seed-averaged measurement from the most
// recent evaluation.
func (fe *FitnessEvaluator) LastMeasurement() Measurement {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes fitness for raw parameter values (lower = better).
// Trials that fail score +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return math.Inf(1)
	}

	results := make([]Measurement, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runTrial(cfg, s)
		}(i, seed)
	}
	wg.Wait()
	if multierr.Combine(errs...) != nil {
		return math.Inf(1)
	}

	var mean Measurement
	for _, r := range results {
		mean.Sink += r.Sink
		mean.Volume += r.Volume
		mean.Landings += r.Landings
	}
	n := float64(len(results))
	mean.Sink /= n
	mean.Volume /= n
	mean.Landings /= len(results)

	fe.mu.Lock()
	fe.last = mean
	fe.mu.Unlock()

	return fe.target.Score(mean)
}

// Score is the squared relative error against the target.
func (t Target) Score(m Measurement) float64 {
	score := relErr2(m.Sink, t.Sink)
	if t.Volume > 0 {
		score += relErr2(m.Volume, t.Volume)
	}
	return score
}

func relErr2(got, want float64) float64 {
	if want <= 0 {
		return 0
	}
	d := (got - want) / want
	return d * d
}

// runTrial walks the configured walkers over a fresh patch generated from
// seed and measures the footprints.
func (fe *FitnessEvaluator) runTrial(cfg *config.Config, seed int64) (Measurement, error) {
	grid, err := trialGrid(cfg, fe.params.Tag, seed)
	if err != nil {
		return Measurement{}, err
	}

	s, err := sim.New(cfg, sim.Options{Seed: seed})
	if err != nil {
		return Measurement{}, err
	}
	s.BindTerrain(grid)
	s.SpawnFromConfig()
	for i := 0; i < fe.ticks; i++ {
		s.Step()
	}

	m := Measure(grid)
	for _, ws := range s.Tracker().All() {
		m.Landings += ws.Landings
	}
	return m, s.Close()
}

// trialGrid generates an unpersisted patch with the configured relief.
func trialGrid(cfg *config.Config, tag string, seed int64) (*terrain.Grid, error) {
	tc := cfg.Terrain
	heights, vegetation := terrain.Generate(terrain.GenerateOptions{
		Resolution: tc.Resolution,
		Seed:       seed,
		Base:       tc.BaseHeight,
		Relief: terrain.NoiseParams{
			Scale:      tc.Noise.Scale,
			Octaves:    tc.Noise.Octaves,
			Lacunarity: tc.Noise.Lacunarity,
			Gain:       tc.Noise.Gain,
			Amplitude:  tc.Noise.Amplitude,
		},
		Vegetation: terrain.NoiseParams{
			Scale:      tc.Vegetation.Scale,
			Octaves:    tc.Vegetation.Octaves,
			Lacunarity: tc.Vegetation.Lacunarity,
			Gain:       tc.Vegetation.Gain,
			Amplitude:  tc.Vegetation.Amplitude,
		},
	})
	return terrain.NewGrid(terrain.GridOptions{
		Name:       fmt.Sprintf("calibrate-%d", seed),
		Tag:        tag,
		Resolution: tc.Resolution,
		Size:       r3.Vec{X: tc.Size.X, Y: tc.Size.Y, Z: tc.Size.Z},
		Heights:    heights,
		Vegetation: vegetation,
	})
}

// Measure reports the deepest sink and the displaced volume of g.
func Measure(g *terrain.Grid) Measurement {
	var m Measurement
	for z := 0; z < g.H; z++ {
		for x := 0; x < g.W; x++ {
			m.Sink = math.Max(m.Sink, float64(g.GetConstant(x, z)-g.Get(x, z)))
		}
	}
	m.Volume = telemetry.SummarizeTerrain(g).DisplacedVolume
	return m
}

// copyConfig copies the base config for one evaluation. Materials are
// cloned so parallel evaluations never share a preset row.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Materials = slices.Clone(fe.baseConfig.Materials)

	cfg.Mode = "terrain_prefabs"
	cfg.Export.Enabled = false
	cfg.Telemetry.PerTickForces = false
	if fe.resolution > 0 {
		cfg.Terrain.Resolution = fe.resolution
	}
	return &cfg
}
