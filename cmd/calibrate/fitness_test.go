package main

import (
	"math"
	"testing"
)

func TestTargetScore(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		m      Measurement
		want   float64
	}{
		{"exact", Target{Sink: 0.01}, Measurement{Sink: 0.01, Volume: 3}, 0},
		{"double sink", Target{Sink: 0.01}, Measurement{Sink: 0.02}, 1},
		{"no print", Target{Sink: 0.01}, Measurement{}, 1},
		{"volume scored", Target{Sink: 0.01, Volume: 2}, Measurement{Sink: 0.01, Volume: 1}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Score(tt.m); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCopyConfigIsolatesPresets(t *testing.T) {
	base := loadDefaults(t)
	pv, err := NewParamVector(base, "Snow")
	if err != nil {
		t.Fatal(err)
	}
	fe := NewFitnessEvaluator(pv, base, 10, 33, []int64{1}, Target{Sink: 0.01})

	cfg := fe.copyConfig()
	if err := pv.ApplyToConfig(cfg, []float64{100000, 0.4, 0.2, 0.1}); err != nil {
		t.Fatal(err)
	}
	if snow := base.Materials[base.Derived.MaterialIndex["Snow"]]; snow.YoungModulus != 200000 {
		t.Errorf("base preset modified: %+v", snow)
	}
	if cfg.Terrain.Resolution != 33 || cfg.Export.Enabled {
		t.Errorf("trial config: resolution %d, export %v", cfg.Terrain.Resolution, cfg.Export.Enabled)
	}
}

func TestEvaluateSofterSinksDeeper(t *testing.T) {
	if testing.Short() {
		t.Skip("runs full trials")
	}
	base := loadDefaults(t)
	base.Terrain.Noise.Amplitude = 0 // flat patch, so every sink is a footprint

	pv, err := NewParamVector(base, "Snow")
	if err != nil {
		t.Fatal(err)
	}
	fe := NewFitnessEvaluator(pv, base, 150, 33, []int64{1, 2}, Target{Sink: 0.01})

	soft := fe.Evaluate([]float64{100000, 0.2, 0.1, 0.3})
	softM := fe.LastMeasurement()
	stiff := fe.Evaluate([]float64{2000000, 0.2, 0.1, 0.3})
	stiffM := fe.LastMeasurement()

	if math.IsInf(soft, 0) || math.IsInf(stiff, 0) {
		t.Fatalf("trial failed: soft %v, stiff %v", soft, stiff)
	}
	if softM.Landings == 0 {
		t.Fatal("no landings during trial")
	}
	if softM.Sink <= 0 || softM.Volume <= 0 {
		t.Errorf("soft measurement = %+v", softM)
	}
	if softM.Sink <= stiffM.Sink {
		t.Errorf("soft sink %v not deeper than stiff sink %v", softM.Sink, stiffM.Sink)
	}
}
