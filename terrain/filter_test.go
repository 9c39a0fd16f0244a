package terrain

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCalculateKernel(t *testing.T) {
	for _, tc := range []struct {
		length int
		sigma  float64
	}{
		{1, 1}, {3, 1}, {5, 0.8}, {7, 2.5},
	} {
		k, err := CalculateKernel(tc.length, tc.sigma)
		if err != nil {
			t.Fatalf("CalculateKernel(%d, %v): %v", tc.length, tc.sigma, err)
		}
		if sum := mat.Sum(k); math.Abs(sum-1) > 1e-12 {
			t.Errorf("kernel(%d, %v) sums to %v", tc.length, tc.sigma, sum)
		}
		n, _ := k.Dims()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if math.Abs(k.At(i, j)-k.At(j, i)) > 1e-15 || math.Abs(k.At(i, j)-k.At(n-1-i, j)) > 1e-15 {
					t.Errorf("kernel(%d, %v) not symmetric at (%d,%d)", tc.length, tc.sigma, i, j)
				}
			}
		}
		// Centre weight is the largest.
		c := n / 2
		if k.At(c, c) < k.At(0, 0) {
			t.Errorf("kernel(%d, %v) centre smaller than corner", tc.length, tc.sigma)
		}
	}
}

func TestCalculateKernelRejects(t *testing.T) {
	for _, tc := range []struct {
		length int
		sigma  float64
	}{
		{0, 1}, {2, 1}, {-3, 1}, {3, 0}, {3, -1}, {3, math.NaN()},
	} {
		if _, err := CalculateKernel(tc.length, tc.sigma); err == nil {
			t.Errorf("CalculateKernel(%d, %v) should fail", tc.length, tc.sigma)
		}
	}
}

func TestFiltersPreserveConstantGrid(t *testing.T) {
	const n = 32
	heights := make([]float32, n*n)
	for i := range heights {
		heights[i] = 0.25
	}

	filters := map[string]func(*Grid) error{
		"average":  (*Grid).AverageSmooth,
		"gauss3":   (*Grid).GaussianBlur3,
		"gauss5":   (*Grid).GaussianBlur5,
		"gaussCus": (*Grid).GaussianBlurCustom,
	}
	for name, apply := range filters {
		t.Run(name, func(t *testing.T) {
			g, err := NewGrid(GridOptions{Resolution: n, Size: r3.Vec{X: 31, Y: 1, Z: 31}, Heights: heights})
			if err != nil {
				t.Fatal(err)
			}
			if err := apply(g); err != nil {
				t.Fatal(err)
			}
			for i, v := range g.Raw() {
				if math.Abs(float64(v)-0.25) > 1e-6 {
					t.Fatalf("cell %d = %v, want 0.25", i, v)
				}
			}
		})
	}
}

func TestFiltersLeaveMarginUntouched(t *testing.T) {
	const n = 32
	heights := make([]float32, n*n)
	for i := range heights {
		heights[i] = float32(i%7) / 7
	}
	g, err := NewGrid(GridOptions{Resolution: n, Size: r3.Vec{X: 31, Y: 1, Z: 31}, Heights: heights})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.GaussianBlur5(); err != nil {
		t.Fatal(err)
	}

	changed := false
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			i := z*n + x
			interior := x >= filterMargin && x < n-filterMargin && z >= filterMargin && z < n-filterMargin
			if !interior && g.Raw()[i] != heights[i] {
				t.Fatalf("margin cell (%d,%d) changed", x, z)
			}
			if interior && g.Raw()[i] != heights[i] {
				changed = true
			}
		}
	}
	if !changed {
		t.Error("interior was not filtered")
	}
}

func TestFiltersOnSmallGrid(t *testing.T) {
	// Grids no wider than twice the margin have no interior; filters are no-ops.
	store := NewMemoryStore()
	g := newTestGrid(t, 12, store)
	g.Set(6, 6, 1)
	for _, f := range []func() error{g.AverageSmooth, g.GaussianBlur3, g.GaussianBlur5, g.GaussianBlurCustom} {
		if err := f(); err != nil {
			t.Fatal(err)
		}
	}
	if got := g.Get(6, 6); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("small grid cell changed to %v", got)
	}
	if store.Saves("test") != 4 {
		t.Errorf("saves = %d, want 4", store.Saves("test"))
	}
}

func TestGaussianBlur3SpreadsSpike(t *testing.T) {
	const n = 24
	g := newTestGrid(t, n, nil)
	g.Set(12, 12, 2)
	if err := g.GaussianBlur3(); err != nil {
		t.Fatal(err)
	}
	// 4/16 of the spike stays in place; the in-place sweep pulls a little
	// back from neighbours that were already filtered (0.582 here).
	if got := g.Get(12, 12); got <= 0.5 || got >= 0.75 {
		t.Errorf("spike after blur = %v, want in (0.5, 0.75)", got)
	}
	if g.Get(13, 12) <= 0 {
		t.Error("neighbour did not receive any height")
	}
}

func TestGaussianBlurKernelRejectsEven(t *testing.T) {
	g := newTestGrid(t, 24, nil)
	if err := g.GaussianBlurKernel(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("expected error for even kernel")
	}
}
