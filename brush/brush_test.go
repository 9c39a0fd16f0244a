package brush

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/terrain"
)

type gridCall struct {
	op         string
	a, b, c, d int
	strength   float64
	radius     int
}

// recordingBrush captures the cell coordinates it receives.
type recordingBrush struct {
	calls []gridCall
}

func (r *recordingBrush) DeformGrid(g *terrain.Grid, s *State, xl, zl, xr, zr int) {
	r.calls = append(r.calls, gridCall{op: "deform", a: xl, b: zl, c: xr, d: zr})
}

func (r *recordingBrush) StabilizeGrid(g *terrain.Grid, s *State, xl, zl, xr, zr int) {
	r.calls = append(r.calls, gridCall{op: "stabilize", a: xl, b: zl, c: xr, d: zr})
}

func (r *recordingBrush) SmoothSingleGrid(g *terrain.Grid, s *State, x, z int, strength float64, radius int) {
	r.calls = append(r.calls, gridCall{op: "smooth", a: x, b: z, strength: strength, radius: radius})
}

func newGrid(t *testing.T, n int, size r3.Vec, store terrain.Store) *terrain.Grid {
	t.Helper()
	heights := make([]float32, n*n)
	for i := range heights {
		heights[i] = 0.5
	}
	g, err := terrain.NewGrid(terrain.GridOptions{Name: "g", Resolution: n, Size: size, Heights: heights, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestFootprintConvertsAndPersists(t *testing.T) {
	store := terrain.NewMemoryStore()
	// 11 samples over 20 units: 2 world units per cell.
	g := newGrid(t, 11, r3.Vec{X: 20, Y: 1, Z: 20}, store)
	rec := &recordingBrush{}
	fp := NewFootprint("rec", g, rec)

	if err := fp.Deform(5.9, 3.1, 7, 9); err != nil {
		t.Fatal(err)
	}
	if err := fp.Stabilize(1.99, 0, 19.9, 4); err != nil {
		t.Fatal(err)
	}
	if err := fp.SmoothSingle(13, 17.5, 0.5, 2); err != nil {
		t.Fatal(err)
	}

	want := []gridCall{
		{op: "deform", a: 2, b: 1, c: 3, d: 4},
		{op: "stabilize", a: 0, b: 0, c: 9, d: 2},
		{op: "smooth", a: 6, b: 8, strength: 0.5, radius: 2},
	}
	if len(rec.calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(rec.calls), len(want))
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, rec.calls[i], want[i])
		}
	}
	if store.Saves("g") != 3 {
		t.Errorf("saves = %d, want one per call", store.Saves("g"))
	}
}

func TestFootprintGridOverloadsTruncate(t *testing.T) {
	store := terrain.NewMemoryStore()
	g := newGrid(t, 11, r3.Vec{X: 20, Y: 1, Z: 20}, store)
	rec := &recordingBrush{}
	fp := NewFootprint("rec", g, rec)

	_ = fp.DeformGridF(2.9, 3.1, 4.5, 5.999)
	_ = fp.StabilizeGridF(0.1, 0.2, 1.3, 7.7)
	_ = fp.SmoothSingleGridF(8.8, 1.01, 1, 3)

	want := []gridCall{
		{op: "deform", a: 2, b: 3, c: 4, d: 5},
		{op: "stabilize", a: 0, b: 0, c: 1, d: 7},
		{op: "smooth", a: 8, b: 1, strength: 1, radius: 3},
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, rec.calls[i], want[i])
		}
	}
	if store.Saves("g") != 3 {
		t.Errorf("saves = %d, want 3", store.Saves("g"))
	}
}

func TestSlotMutualExclusion(t *testing.T) {
	g := newGrid(t, 11, r3.Vec{X: 10, Y: 1, Z: 10}, nil)
	a := NewFootprint("a", g, &recordingBrush{})
	b := NewFootprint("b", g, &recordingBrush{})
	var slot Slot

	if slot.Brush() != nil {
		t.Fatal("empty slot must return a nil Brush")
	}

	slot.Activate(a)
	if !slot.IsActive(a) || !a.Active() {
		t.Fatal("a should be active")
	}
	slot.Activate(b)
	if slot.IsActive(a) || a.Active() {
		t.Error("activating b must deactivate a")
	}
	if slot.Active() != b || !b.Active() {
		t.Error("b should hold the slot")
	}

	slot.Deactivate(a) // not the holder; no effect on b
	if slot.Active() != b {
		t.Error("deactivating a non-holder changed the slot")
	}

	slot.Toggle(b)
	if slot.Active() != nil || b.Active() {
		t.Error("toggle should deactivate b")
	}
	if slot.Brush() != nil {
		t.Error("slot should be empty after toggle")
	}
	slot.Toggle(b)
	if slot.Active() != b {
		t.Error("toggle should reactivate b")
	}
}

func TestStateAccumulators(t *testing.T) {
	var s State
	s.Record(components.FootLeft, 12.5, []Cell{{1, 2}, {3, 4}})
	if s.Pressure(components.FootLeft) != 12.5 || len(s.Touched(components.FootLeft)) != 2 {
		t.Fatalf("record not stored: %v %v", s.Pressure(components.FootLeft), s.Touched(components.FootLeft))
	}
	s.BeginTick(Contact{DT: 0.1})
	if s.Pressure(components.FootLeft) != 0 || len(s.Touched(components.FootLeft)) != 0 {
		t.Error("BeginTick did not clear accumulators")
	}
	if s.Contact.DT != 0.1 {
		t.Error("BeginTick did not install contact")
	}
}

func TestFootprintPressSelectsOneFoot(t *testing.T) {
	fp := NewFootprint("gate", newGrid(t, 8, r3.Vec{X: 7, Y: 1, Z: 7}, nil), &recordingBrush{})
	fp.State().BeginTick(Contact{Grounded: [2]bool{true, true}})

	fp.Press(components.FootLeft)
	if got := fp.State().Contact.Deforming; got != [2]bool{true, false} {
		t.Errorf("after left press deforming = %v", got)
	}
	fp.Press(components.FootRight)
	if got := fp.State().Contact.Deforming; got != [2]bool{false, true} {
		t.Errorf("after right press deforming = %v", got)
	}
	if got := fp.State().Contact.Grounded; got != [2]bool{true, true} {
		t.Errorf("press changed grounded flags: %v", got)
	}
}

func TestMaterialModulus(t *testing.T) {
	veg := make([]float64, 8*8)
	veg[3*8+2] = 0.5
	g, err := terrain.NewGrid(terrain.GridOptions{Resolution: 8, Size: r3.Vec{X: 7, Y: 1, Z: 7}, Vegetation: veg})
	if err != nil {
		t.Fatal(err)
	}
	m := Material{YoungModulus: 100, YoungModulusGround: 1000, YoungModulusVegetation: 400}
	if got := m.ModulusAt(g, 2, 3); got != 100 {
		t.Errorf("plain modulus = %v", got)
	}
	m.UseVegetation = true
	if got := m.ModulusAt(g, 2, 3); got != 1200 {
		t.Errorf("vegetation modulus = %v, want 1200", got)
	}
	if got := m.ModulusAt(g, 0, 0); got != 1000 {
		t.Errorf("bare ground modulus = %v, want 1000", got)
	}
}

func near32(a float32, b float64, tol float64) bool {
	return math.Abs(float64(a)-b) <= tol
}
