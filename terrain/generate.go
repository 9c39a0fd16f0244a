package terrain

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

// NoiseParams controls a fractal noise layer.
type NoiseParams struct {
	Scale      float64 // base frequency across the whole terrain
	Octaves    int
	Lacunarity float64
	Gain       float64
	Amplitude  float64
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Resolution int
	Seed       int64
	Base       float64 // normalized base height
	Relief     NoiseParams
	Vegetation NoiseParams
}

// Generate builds raw normalized heights and a vegetation ratio map, both
// row-major (z*Resolution + x).
func Generate(opts GenerateOptions) (heights []float32, vegetation []float64) {
	n := opts.Resolution
	heights = make([]float32, n*n)
	vegetation = make([]float64, n*n)

	relief := opensimplex.New(opts.Seed)
	veg := opensimplex.NewNormalized(opts.Seed + 1)

	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			u, v := float64(x)/float64(n), float64(z)/float64(n)
			h := opts.Base + opts.Relief.Amplitude*fbm(relief, u, v, opts.Relief)
			heights[z*n+x] = float32(math.Max(0, math.Min(1, h)))

			r := opts.Vegetation.Amplitude * fbm(veg, u, v, opts.Vegetation)
			vegetation[z*n+x] = math.Max(0, math.Min(1, r))
		}
	}
	return heights, vegetation
}

// fbm sums octaves of noise normalized by total amplitude, so the result keeps
// the range of a single Eval2 call.
func fbm(noise opensimplex.Noise, u, v float64, p NoiseParams) float64 {
	octaves := max(p.Octaves, 1)
	freq := p.Scale
	amp := 1.0
	var sum, norm float64
	for i := 0; i < octaves; i++ {
		sum += amp * noise.Eval2(u*freq, v*freq)
		norm += amp
		freq *= p.Lacunarity
		amp *= p.Gain
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
