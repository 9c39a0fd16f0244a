package materials

import (
	"fmt"

	"github.com/pthm-cable/trail/brush"
	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/scheduler"
)

// Mode selects where the material parameters come from each tick.
type Mode uint8

const (
	// ModeUI uses the Manual values, which an interactive front end edits.
	ModeUI Mode = iota
	// ModeTerrainPrefabs looks up the terrain tag in the Table.
	ModeTerrainPrefabs
	// ModeManualWithVegetation uses the Manual ground and vegetation moduli
	// and lets the brush weight them by the grid's vegetation ratio.
	ModeManualWithVegetation
)

var modeNames = map[string]Mode{
	"ui":                     ModeUI,
	"terrain_prefabs":        ModeTerrainPrefabs,
	"manual_with_vegetation": ModeManualWithVegetation,
}

// ParseMode converts a config mode name.
func ParseMode(s string) (Mode, error) {
	m, ok := modeNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown material mode %q", s)
	}
	return m, nil
}

func (m Mode) String() string {
	for name, v := range modeNames {
		if v == m {
			return name
		}
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// Source performs the per-tick material hand-off for the selected mode.
type Source struct {
	Mode   Mode
	Table  *Table
	Manual Preset
}

// SourceFromConfig builds a Source from the mode, manual and materials sections.
func SourceFromConfig(cfg *config.Config) (*Source, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	table, err := TableFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Source{Mode: mode, Table: table, Manual: PresetFromConfig(cfg.Manual)}, nil
}

// Apply pushes this tick's parameters for a terrain tagged tag. It returns
// the preset that was applied.
func (s *Source) Apply(tag string, st *brush.State, sc *scheduler.Config) Preset {
	switch s.Mode {
	case ModeTerrainPrefabs:
		return s.Table.Apply(tag, st, sc)
	case ModeManualWithVegetation:
		s.Manual.Push(st, sc)
		if st != nil {
			st.Material.YoungModulusGround = s.Manual.YoungModulusGround
			st.Material.YoungModulusVegetation = s.Manual.YoungModulusVegetation
			st.Material.UseVegetation = true
		}
		return s.Manual
	default:
		s.Manual.Push(st, sc)
		return s.Manual
	}
}
