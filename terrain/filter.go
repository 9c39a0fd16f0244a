package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// filterMargin is the band of cells along each border that whole-grid
// filters leave untouched.
const filterMargin = 10

var (
	gaussian3 = mat.NewDense(3, 3, []float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	})
	binomial5 = outer([]float64{1, 4, 6, 4, 1})
	box5      = mat.NewDense(5, 5, []float64{
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
	})
)

func init() {
	gaussian3.Scale(1.0/16, gaussian3)
	binomial5.Scale(1.0/256, binomial5)
	box5.Scale(1.0/25, box5)
}

func outer(v []float64) *mat.Dense {
	n := len(v)
	m := mat.NewDense(n, n, nil)
	m.Outer(1, mat.NewVecDense(n, v), mat.NewVecDense(n, v))
	return m
}

// CalculateKernel returns a normalized length×length Gaussian kernel.
// Length must be odd and positive, sigma positive.
func CalculateKernel(length int, sigma float64) (*mat.Dense, error) {
	if length <= 0 || length%2 == 0 {
		return nil, fmt.Errorf("kernel length must be odd and positive, got %d", length)
	}
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("kernel sigma must be positive, got %v", sigma)
	}

	r := length / 2
	k := mat.NewDense(length, length, nil)
	twoSigmaSq := 2 * sigma * sigma
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			v := math.Exp(-float64(x*x+y*y)/twoSigmaSq) / (math.Pi * twoSigmaSq)
			k.Set(y+r, x+r, v)
		}
	}
	k.Scale(1/mat.Sum(k), k)
	return k, nil
}

// AverageSmooth replaces every interior cell by the mean of its 5×5 neighbourhood.
func (g *Grid) AverageSmooth() error {
	g.convolveInPlace(box5)
	return g.Save()
}

// GaussianBlur3 applies the 3×3 binomial kernel to the interior.
func (g *Grid) GaussianBlur3() error {
	g.convolveInPlace(gaussian3)
	return g.Save()
}

// GaussianBlur5 applies the 5×5 binomial kernel to the interior.
func (g *Grid) GaussianBlur5() error {
	g.convolveInPlace(binomial5)
	return g.Save()
}

// GaussianBlurCustom applies a generated 3×3, sigma 1 Gaussian to the interior.
func (g *Grid) GaussianBlurCustom() error {
	k, err := CalculateKernel(3, 1)
	if err != nil {
		return err
	}
	return g.GaussianBlurKernel(k)
}

// GaussianBlurKernel applies an arbitrary odd square kernel to the interior.
func (g *Grid) GaussianBlurKernel(k *mat.Dense) error {
	rows, cols := k.Dims()
	if rows != cols || rows%2 == 0 {
		return fmt.Errorf("kernel must be odd and square, got %dx%d", rows, cols)
	}
	g.convolveInPlace(k)
	return g.Save()
}

// convolveInPlace sweeps z-major over [margin, dim-margin) and writes each
// result straight back, so later cells read already-filtered neighbours.
func (g *Grid) convolveInPlace(k *mat.Dense) {
	n, _ := k.Dims()
	r := n / 2
	for z := filterMargin; z < g.H-filterMargin; z++ {
		for x := filterMargin; x < g.W-filterMargin; x++ {
			var sum float64
			for dz := -r; dz <= r; dz++ {
				for dx := -r; dx <= r; dx++ {
					sum += float64(g.data[g.index(x+dx, z+dz)]) * k.At(dz+r, dx+r)
				}
			}
			g.data[z*g.W+x] = float32(sum)
		}
	}
}
