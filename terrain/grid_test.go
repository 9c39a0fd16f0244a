package terrain

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func newTestGrid(t *testing.T, n int, store Store) *Grid {
	t.Helper()
	g, err := NewGrid(GridOptions{
		Name:       "test",
		Tag:        "Snow",
		Resolution: n,
		Size:       r3.Vec{X: float64(n - 1), Y: 2, Z: float64(n - 1)},
		Store:      store,
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestNewGridRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts GridOptions
	}{
		{"tiny", GridOptions{Resolution: 2, Size: r3.Vec{X: 1, Y: 1, Z: 1}}},
		{"zero size", GridOptions{Resolution: 8, Size: r3.Vec{X: 1, Y: 0, Z: 1}}},
		{"short heights", GridOptions{Resolution: 8, Size: r3.Vec{X: 1, Y: 1, Z: 1}, Heights: make([]float32, 10)}},
		{"short vegetation", GridOptions{Resolution: 8, Size: r3.Vec{X: 1, Y: 1, Z: 1}, Vegetation: make([]float64, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.opts)
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestGridScaleAndCells(t *testing.T) {
	g, err := NewGrid(GridOptions{Resolution: 5, Size: r3.Vec{X: 8, Y: 3, Z: 4}})
	if err != nil {
		t.Fatal(err)
	}
	if g.CellLengthX() != 2 || g.CellLengthZ() != 1 {
		t.Errorf("cell lengths = %v, %v; want 2, 1", g.CellLengthX(), g.CellLengthZ())
	}
	if g.CellArea() != 2 {
		t.Errorf("cell area = %v, want 2", g.CellArea())
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	g := newTestGrid(t, 16, nil)
	g.Set(3, 7, 1.25)
	if got := g.Get(3, 7); !near(float64(got), 1.25, 1e-6) {
		t.Errorf("Get(3,7) = %v, want 1.25", got)
	}
	// Raw storage is normalized by the height scale.
	if got := g.Raw()[7*16+3]; !near(float64(got), 0.625, 1e-6) {
		t.Errorf("raw = %v, want 0.625", got)
	}
}

func TestWrapAddressing(t *testing.T) {
	g := newTestGrid(t, 16, nil)
	g.Set(15, 0, 0.5)
	g.Set(0, 15, 0.75)

	tests := []struct {
		name string
		x, z int
		want float32
	}{
		{"minus one wraps to last column", -1, 0, 0.5},
		{"width wraps to zero", 16 + 15, 0, 0.5},
		{"minus one row", 0, -1, 0.75},
		{"far negative", -17, 16, 0.5},
		{"several widths negative", -33, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Get(tt.x, tt.z); !near(float64(got), float64(tt.want), 1e-6) {
				t.Errorf("Get(%d,%d) = %v, want %v", tt.x, tt.z, got, tt.want)
			}
		})
	}

	g.Set(-1, -1, 1.5)
	if got := g.Get(15, 15); !near(float64(got), 1.5, 1e-6) {
		t.Errorf("Set(-1,-1) did not land on (15,15): %v", got)
	}
}

func TestFloatOverloadsTruncate(t *testing.T) {
	g := newTestGrid(t, 16, nil)
	g.Set(4, 9, 0.3)
	if got := g.GetF(4.99, 9.2); !near(float64(got), 0.3, 1e-6) {
		t.Errorf("GetF(4.99, 9.2) = %v, want 0.3", got)
	}
	g.SetF(2.7, 3.9, 0.9)
	if got := g.Get(2, 3); !near(float64(got), 0.9, 1e-6) {
		t.Errorf("SetF did not truncate: %v", got)
	}
}

func TestSnapshotsAreIndependent(t *testing.T) {
	heights := make([]float32, 16*16)
	heights[5*16+5] = 0.5
	g, err := NewGrid(GridOptions{Resolution: 16, Size: r3.Vec{X: 15, Y: 2, Z: 15}, Heights: heights})
	if err != nil {
		t.Fatal(err)
	}
	heights[5*16+5] = 0.9 // caller's slice must not alias the grid

	g.Set(5, 5, 0)
	if got := g.GetConstant(5, 5); !near(float64(got), 1.0, 1e-6) {
		t.Errorf("constant snapshot = %v, want 1.0", got)
	}
	if got := g.GetFiltered(5, 5); !near(float64(got), 1.0, 1e-6) {
		t.Errorf("filtered snapshot = %v, want 1.0", got)
	}
}

func TestWorldGridConversion(t *testing.T) {
	g, err := NewGrid(GridOptions{Resolution: 11, Size: r3.Vec{X: 20, Y: 1, Z: 5}})
	if err != nil {
		t.Fatal(err)
	}
	p := r3.Vec{X: 7, Y: 0.4, Z: 3}
	c := g.WorldToGrid(p)
	if c.X != 3.5 || c.Z != 6 || c.Y != 0.4 {
		t.Errorf("WorldToGrid = %+v", c)
	}
	back := g.GridToWorld(c)
	if !near(back.X, p.X, 1e-12) || !near(back.Z, p.Z, 1e-12) || back.Y != p.Y {
		t.Errorf("GridToWorld(WorldToGrid(p)) = %+v, want %+v", back, p)
	}
}

func TestResetPersists(t *testing.T) {
	store := NewMemoryStore()
	g := newTestGrid(t, 8, store)
	g.Set(1, 1, 1)
	if err := g.Reset(); err != nil {
		t.Fatal(err)
	}
	for i, v := range g.Raw() {
		if v != 0 {
			t.Fatalf("cell %d = %v after reset", i, v)
		}
	}
	if store.Saves("test") != 1 {
		t.Errorf("saves = %d, want 1", store.Saves("test"))
	}
}

func TestVegetationRatio(t *testing.T) {
	veg := make([]float64, 8*8)
	veg[2*8+3] = 0.75
	g, err := NewGrid(GridOptions{Resolution: 8, Size: r3.Vec{X: 7, Y: 1, Z: 7}, Vegetation: veg})
	if err != nil {
		t.Fatal(err)
	}
	if got := g.VegetationRatio(3, 2); got != 0.75 {
		t.Errorf("VegetationRatio(3,2) = %v", got)
	}
	if got := newTestGrid(t, 8, nil).VegetationRatio(3, 2); got != 0 {
		t.Errorf("grid without vegetation returned %v", got)
	}
}
