// Package materials maps terrain tags to deformation parameters and hands
// them to the active brush and scheduler.
package materials

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/trail/brush"
	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/scheduler"
)

// DefaultTag names the fallback preset.
const DefaultTag = "Default"

// ErrNoDefault is returned when a table is built without a Default preset.
var ErrNoDefault = errors.New("material table has no Default preset")

// Preset is one row of the table. A zero ContactTime leaves the scheduler's
// contact time untouched.
type Preset struct {
	Tag                    string
	YoungModulus           float64
	YoungModulusGround     float64
	YoungModulusVegetation float64
	ContactTime            float64
	PoissonRatio           float64
	FilterIterations       int
	ActivateBump           bool
}

// PresetFromConfig converts a config row.
func PresetFromConfig(m config.MaterialConfig) Preset {
	return Preset{
		Tag:                    m.Tag,
		YoungModulus:           m.YoungModulus,
		YoungModulusGround:     m.YoungModulusGround,
		YoungModulusVegetation: m.YoungModulusVegetation,
		ContactTime:            m.ContactTime,
		PoissonRatio:           m.PoissonRatio,
		FilterIterations:       m.FilterIterations,
		ActivateBump:           m.ActivateBump,
	}
}

// Push copies the preset onto a brush state and scheduler config.
// Vegetation moduli are left alone; only the vegetation mode sets them.
func (p Preset) Push(s *brush.State, sc *scheduler.Config) {
	if s != nil {
		s.Material.YoungModulus = p.YoungModulus
		s.Material.PoissonRatio = p.PoissonRatio
		s.Material.FilterIterations = p.FilterIterations
		s.Material.ActivateBump = p.ActivateBump
		s.Material.UseVegetation = false
	}
	if sc != nil && p.ContactTime > 0 {
		sc.ContactTime = p.ContactTime
	}
}

// Table is a tag-indexed set of presets with a Default fallback.
type Table struct {
	presets map[string]Preset
	def     Preset
}

// NewTable builds a table. One preset must be tagged Default.
func NewTable(presets []Preset) (*Table, error) {
	t := &Table{presets: make(map[string]Preset, len(presets))}
	found := false
	for _, p := range presets {
		if _, dup := t.presets[p.Tag]; dup {
			return nil, fmt.Errorf("duplicate material tag %q", p.Tag)
		}
		t.presets[p.Tag] = p
		if p.Tag == DefaultTag {
			t.def = p
			found = true
		}
	}
	if !found {
		return nil, ErrNoDefault
	}
	return t, nil
}

// TableFromConfig builds the table from the materials section.
func TableFromConfig(cfg *config.Config) (*Table, error) {
	presets := make([]Preset, len(cfg.Materials))
	for i, m := range cfg.Materials {
		presets[i] = PresetFromConfig(m)
	}
	return NewTable(presets)
}

// Lookup returns the preset for tag, or Default for unknown tags.
func (t *Table) Lookup(tag string) Preset {
	if p, ok := t.presets[tag]; ok {
		return p
	}
	return t.def
}

// Has reports whether tag has its own preset.
func (t *Table) Has(tag string) bool {
	_, ok := t.presets[tag]
	return ok
}

// Apply looks up tag and pushes the preset.
func (t *Table) Apply(tag string, s *brush.State, sc *scheduler.Config) Preset {
	p := t.Lookup(tag)
	p.Push(s, sc)
	return p
}
