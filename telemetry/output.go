package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/export"
	"github.com/pthm-cable/trail/forces"
)

// Map file names inside the output directory.
const (
	HeightMapFile   = "heightmap.bin"
	PressureMapFile = "pressure.bin"
	YoungMapFile    = "young.bin"
)

// ForceRecord is one foot's forces for one tick.
type ForceRecord struct {
	Tick       int32   `csv:"tick"`
	WalkerID   uint32  `csv:"walker"`
	Foot       string  `csv:"foot"`
	Grounded   bool    `csv:"grounded"`
	Fraction   float64 `csv:"fraction"`
	GRFX       float64 `csv:"grf_x"`
	GRFY       float64 `csv:"grf_y"`
	GRFZ       float64 `csv:"grf_z"`
	Vertical   float64 `csv:"foot_vertical"`
	Downward   float64 `csv:"foot_downward"`
	Horizontal float64 `csv:"foot_horizontal"`
	OnTerrain  float64 `csv:"foot_on_terrain"`
	Pressure   float64 `csv:"pressure"`
}

// NewForceRecord flattens one foot's forces.
func NewForceRecord(tick int32, walkerID uint32, f components.Foot, grounded bool, ff forces.FootForces, pressure float64) ForceRecord {
	return ForceRecord{
		Tick:       tick,
		WalkerID:   walkerID,
		Foot:       f.String(),
		Grounded:   grounded,
		Fraction:   ff.Fraction,
		GRFX:       ff.GRF.X,
		GRFY:       ff.GRF.Y,
		GRFZ:       ff.GRF.Z,
		Vertical:   r3.Norm(ff.FootParts.Vertical),
		Downward:   r3.Norm(ff.FootParts.Downward),
		Horizontal: r3.Norm(ff.FootParts.Horizontal),
		OnTerrain:  r3.Norm(ff.FootOnTerrain),
		Pressure:   pressure,
	}
}

// csvFile writes gocsv records, with headers on the first write only.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

func (c *csvFile) write(records any) error {
	if c == nil {
		return nil
	}
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

func (c *csvFile) close() error {
	if c == nil {
		return nil
	}
	return c.f.Close()
}

// OutputManager handles structured run output: CSV logs, map exports,
// the config snapshot and state snapshots.
type OutputManager struct {
	dir string

	telemetry *csvFile
	perf      *csvFile
	bookmarks *csvFile
	footfalls *csvFile
	forces    *csvFile // nil unless per-tick forces are enabled
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, perTickForces bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		dst  **csvFile
		name string
	}{
		{&om.telemetry, "telemetry.csv"},
		{&om.perf, "perf.csv"},
		{&om.bookmarks, "bookmarks.csv"},
		{&om.footfalls, "footfalls.csv"},
	}
	if perTickForces {
		files = append(files, struct {
			dst  **csvFile
			name string
		}{&om.forces, "forces.csv"})
	}

	for _, fl := range files {
		c, err := createCSV(dir, fl.name)
		if err != nil {
			return nil, multierr.Append(err, om.Close())
		}
		*fl.dst = c
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteFootfalls appends footfall events to footfalls.csv.
func (om *OutputManager) WriteFootfalls(events []Footfall) error {
	if om == nil || len(events) == 0 {
		return nil
	}
	if err := om.footfalls.write(events); err != nil {
		return fmt.Errorf("writing footfalls: %w", err)
	}
	return nil
}

// WriteForces appends per-tick force records to forces.csv when enabled.
func (om *OutputManager) WriteForces(records []ForceRecord) error {
	if om == nil || om.forces == nil || len(records) == 0 {
		return nil
	}
	if err := om.forces.write(records); err != nil {
		return fmt.Errorf("writing forces: %w", err)
	}
	return nil
}

// WriteMaps implements export.Sink by overwriting the three map files.
func (om *OutputManager) WriteMaps(m export.Maps) error {
	if om == nil {
		return nil
	}
	var err error
	for _, f := range []struct {
		name string
		data []byte
	}{
		{HeightMapFile, m.Height},
		{PressureMapFile, m.Pressure},
		{YoungMapFile, m.Young},
	} {
		if werr := os.WriteFile(filepath.Join(om.dir, f.name), f.data, 0644); werr != nil {
			err = multierr.Append(err, fmt.Errorf("writing %s: %w", f.name, werr))
		}
	}
	return err
}

// WriteSnapshot saves a state snapshot into the output directory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(s, om.dir)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return multierr.Combine(
		om.telemetry.close(),
		om.perf.close(),
		om.bookmarks.close(),
		om.footfalls.close(),
		om.forces.close(),
	)
}
