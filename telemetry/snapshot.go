package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot records the state of a run at one tick. Heights live in the
// heightmap store; the snapshot names the entry.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Tick    int32   `json:"tick"`
	SimTime float64 `json:"sim_time"`

	Terrain TerrainState  `json:"terrain"`
	Walkers []WalkerState `json:"walkers"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// TerrainState identifies the bound terrain.
type TerrainState struct {
	Name       string  `json:"name"`
	Tag        string  `json:"tag"`
	Resolution int     `json:"resolution"`
	SizeX      float64 `json:"size_x"`
	SizeY      float64 `json:"size_y"`
	SizeZ      float64 `json:"size_z"`

	HeightMin       float64 `json:"height_min"`
	HeightMean      float64 `json:"height_mean"`
	DisplacedVolume float64 `json:"displaced_volume"`
}

// WalkerState holds one walker's state.
type WalkerState struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`

	ComX float64 `json:"com_x"`
	ComZ float64 `json:"com_z"`

	Feet [2]FootState `json:"feet"`

	Stats *WalkerStatsJSON `json:"stats,omitempty"`
}

// FootState is the scheduler state of one foot.
type FootState struct {
	Phase              string  `json:"phase"`
	Grounded           bool    `json:"grounded"`
	Elapsed            float64 `json:"elapsed"`
	StabilizationCount int     `json:"stabilization_count"`
	GaussianCount      int     `json:"gaussian_count"`
	LiftOffX           float64 `json:"lift_off_x"`
	LiftOffZ           float64 `json:"lift_off_z"`
	HasLiftOff         bool    `json:"has_lift_off"`
	PressureTime       float64 `json:"accumulated_pressure_time"`
}

// WalkerStatsJSON is the JSON-serializable form of WalkerStats.
type WalkerStatsJSON struct {
	Landings  int     `json:"landings"`
	LiftOffs  int     `json:"lift_offs"`
	PeakGRF   float64 `json:"peak_grf"`
	Distance  float64 `json:"distance"`
	StampTime float64 `json:"stamp_time"`
}

// ToJSON converts WalkerStats to its JSON form.
func (ws *WalkerStats) ToJSON() *WalkerStatsJSON {
	if ws == nil {
		return nil
	}
	return &WalkerStatsJSON{
		Landings:  ws.Landings,
		LiftOffs:  ws.LiftOffs,
		PeakGRF:   ws.PeakGRF,
		Distance:  ws.Distance,
		StampTime: ws.StampTime,
	}
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
