// Command mapinspect summarizes the height, pressure and Young's modulus
// maps written by a headless run.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/trail/byteconv"
	"github.com/pthm-cable/trail/telemetry"
)

// Maps holds decoded exports, widened to float64. Layout is [x][y]
// row-major, Resolution×Resolution.
type Maps struct {
	Resolution int
	Height     []float64
	Pressure   []float64
	Young      []float64
}

func main() {
	dir := flag.String("dir", "", "Output directory of a headless run")
	row := flag.Int("row", -1, "Map row (x index) to plot (-1 = middle)")
	width := flag.Int("width", 72, "Plot width in columns")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "--dir is required")
		os.Exit(2)
	}

	m, err := LoadMaps(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load maps: %v\n", err)
		os.Exit(1)
	}
	if err := Report(os.Stdout, m, *row, *width); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}

// LoadMaps reads and decodes the three map files in dir. All maps must
// share one square resolution.
func LoadMaps(dir string) (*Maps, error) {
	read := func(name string) []byte {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil
		}
		return b
	}
	hb, pb, yb := read(telemetry.HeightMapFile), read(telemetry.PressureMapFile), read(telemetry.YoungMapFile)
	if hb == nil || pb == nil || yb == nil {
		return nil, fmt.Errorf("%s must contain %s, %s and %s", dir,
			telemetry.HeightMapFile, telemetry.PressureMapFile, telemetry.YoungMapFile)
	}

	h, err1 := byteconv.DecodeFloat32s(hb)
	p, err2 := byteconv.DecodeFloat32s(pb)
	y, err3 := byteconv.DecodeFloat64s(yb)
	if err := multierr.Combine(err1, err2, err3); err != nil {
		return nil, err
	}
	if len(h) != len(p) || len(h) != len(y) {
		return nil, fmt.Errorf("map sizes differ: height %d, pressure %d, young %d", len(h), len(p), len(y))
	}
	n, err := byteconv.SquareSide(len(h))
	if err != nil {
		return nil, err
	}

	return &Maps{
		Resolution: n,
		Height:     widen(h),
		Pressure:   widen(p),
		Young:      y,
	}, nil
}

func widen(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

// Summary is the distribution of one map.
type Summary struct {
	Min, Max, Mean, StdDev float64
	NonZero                int
}

// Summarize computes a Summary. An empty map summarizes to zero.
func Summarize(v []float64) Summary {
	if len(v) == 0 {
		return Summary{}
	}
	s := Summary{
		Min:    floats.Min(v),
		Max:    floats.Max(v),
		Mean:   stat.Mean(v, nil),
		StdDev: stat.PopStdDev(v, nil),
	}
	for _, x := range v {
		if x != 0 {
			s.NonZero++
		}
	}
	return s
}

// Row returns the y-profile of map v at x.
func (m *Maps) Row(v []float64, x int) []float64 {
	n := m.Resolution
	return v[x*n : (x+1)*n]
}

// Report prints summaries of all maps and height and pressure profiles
// along one row.
func Report(w io.Writer, m *Maps, row, width int) error {
	if m.Resolution == 0 {
		return errors.New("empty maps")
	}
	if row < 0 {
		row = m.Resolution / 2
	}
	if row >= m.Resolution {
		return fmt.Errorf("row %d outside resolution %d", row, m.Resolution)
	}

	fmt.Fprintf(w, "resolution %d×%d\n", m.Resolution, m.Resolution)
	for _, e := range []struct {
		name string
		v    []float64
	}{
		{"height", m.Height},
		{"pressure", m.Pressure},
		{"young", m.Young},
	} {
		s := Summarize(e.v)
		fmt.Fprintf(w, "%-8s min=%.6g max=%.6g mean=%.6g std=%.6g nonzero=%d\n",
			e.name, s.Min, s.Max, s.Mean, s.StdDev, s.NonZero)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, asciigraph.Plot(m.Row(m.Height, row),
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("height along x=%d", row)),
	))
	if floats.Max(m.Row(m.Pressure, row)) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, asciigraph.Plot(m.Row(m.Pressure, row),
			asciigraph.Height(6),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("accumulated pressure along x=%d", row)),
		))
	}
	return nil
}
