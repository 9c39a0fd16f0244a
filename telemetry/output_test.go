package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/export"
	"github.com/pthm-cable/trail/forces"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", true)
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}

	// Every method is a no-op on a nil manager.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteMaps(export.Maps{}); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("nil manager has a directory")
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	for _, tick := range []int32{300, 600} {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: tick, Landings: 3}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteFootfalls([]Footfall{
		NewLandingEvent(10, 0.5, 1, components.FootLeft, 3, 4, 700),
		NewLiftOffEvent(20, 1.0, 1, components.FootLeft, 3.5, 4),
	}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkSettled, Tick: 600}); err != nil {
		t.Fatal(err)
	}
	// Forces are disabled: silently dropped.
	if err := om.WriteForces([]ForceRecord{{Tick: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, filepath.Join(dir, "telemetry.csv"))
	if len(lines) != 3 {
		t.Fatalf("telemetry.csv has %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,sim_time,walkers,landings") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "600,") {
		t.Errorf("second row = %q", lines[2])
	}

	footfalls := readLines(t, filepath.Join(dir, "footfalls.csv"))
	if len(footfalls) != 3 || !strings.HasPrefix(footfalls[1], "landing,10,") || !strings.HasPrefix(footfalls[2], "lift_off,20,") {
		t.Errorf("footfalls.csv = %q", footfalls)
	}

	if _, err := os.Stat(filepath.Join(dir, "forces.csv")); !os.IsNotExist(err) {
		t.Error("forces.csv created without per-tick forces")
	}
}

func TestOutputManagerForces(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, true)
	if err != nil {
		t.Fatal(err)
	}

	var ff forces.FootForces
	ff.Fraction = 1
	ff.FootParts.Vertical.Y = -800
	rec := NewForceRecord(5, 2, components.FootRight, true, ff, 1600)
	if rec.Vertical != 800 || rec.Foot != "right" {
		t.Errorf("record = %+v", rec)
	}
	if err := om.WriteForces([]ForceRecord{rec}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, filepath.Join(dir, "forces.csv"))
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "5,2,right,true,1,") {
		t.Errorf("forces.csv = %q", lines)
	}
}

func TestOutputManagerMaps(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	var sink export.Sink = om
	maps := export.Maps{
		Height:   []byte{1, 2, 3, 4},
		Pressure: []byte{5, 6, 7, 8},
		Young:    []byte{9, 10, 11, 12, 13, 14, 15, 16},
	}
	if err := sink.WriteMaps(maps); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string][]byte{
		HeightMapFile:   maps.Height,
		PressureMapFile: maps.Pressure,
		YoungMapFile:    maps.Young,
	} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestOutputManagerSnapshot(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	path, err := om.WriteSnapshot(&Snapshot{Version: SnapshotVersion, Tick: 300})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "snapshot_300.json") {
		t.Errorf("path = %q", path)
	}
	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Tick != 300 {
		t.Errorf("tick = %d", snap.Tick)
	}
}
