// Package main fits a material preset to a target footprint with CMA-ES.
package main

import (
	"fmt"

	"github.com/pthm-cable/trail/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters for one preset.
type ParamVector struct {
	Tag   string
	Specs []ParamSpec
}

// NewParamVector creates the standard parameter set for the preset tag.
// Defaults are taken from cfg so the search starts at the current preset.
func NewParamVector(cfg *config.Config, tag string) (*ParamVector, error) {
	pv := &ParamVector{
		Tag: tag,
		Specs: []ParamSpec{
			{Name: "young_modulus", Path: "materials[" + tag + "].young_modulus", Min: 50000, Max: 2000000},
			{Name: "contact_time", Path: "materials[" + tag + "].contact_time", Min: 0.05, Max: 1.5},
			{Name: "poisson_ratio", Path: "materials[" + tag + "].poisson_ratio", Min: 0, Max: 0.45},
			{Name: "layer_depth", Path: "brush.layer_depth", Min: 0.05, Max: 0.6},
		},
	}
	current, err := pv.ExtractFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	current = pv.Clamp(current)
	for i := range pv.Specs {
		pv.Specs[i].Default = current[i]
	}
	return pv, nil
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = max(spec.Min, min(spec.Max, v[i]))
	}
	return clamped
}

func (pv *ParamVector) preset(cfg *config.Config) (*config.MaterialConfig, error) {
	for i := range cfg.Materials {
		if cfg.Materials[i].Tag == pv.Tag {
			return &cfg.Materials[i], nil
		}
	}
	return nil, fmt.Errorf("no material preset tagged %q", pv.Tag)
}

// ApplyToConfig writes clamped parameter values into the preset and the
// brush section. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	m, err := pv.preset(cfg)
	if err != nil {
		return err
	}
	clamped := pv.Clamp(values)

	m.YoungModulus = clamped[0]
	m.ContactTime = clamped[1]
	m.PoissonRatio = clamped[2]
	cfg.Brush.LayerDepth = clamped[3]
	return nil
}

// ExtractFromConfig reads the current parameter values. A preset that keeps
// the global contact time reports the deformation contact time.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) ([]float64, error) {
	m, err := pv.preset(cfg)
	if err != nil {
		return nil, err
	}
	ct := m.ContactTime
	if ct == 0 {
		ct = cfg.Deformation.ContactTime
	}
	return []float64{m.YoungModulus, ct, m.PoissonRatio, cfg.Brush.LayerDepth}, nil
}
