package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/config"
)

// Body holds physical properties of a walker.
type Body struct {
	Mass    float64
	Gravity r3.Vec
}

// BodyFromConfig returns the configured body.
func BodyFromConfig(cfg *config.Config) Body {
	g := cfg.Physics.Gravity
	return Body{
		Mass:    cfg.Body.Mass,
		Gravity: r3.Vec{X: g.X, Y: g.Y, Z: g.Z},
	}
}
