// Package export owns the height, pressure and Young's modulus maps that are
// serialized for external consumers.
//
// All maps are resolution×resolution, stored [x][y] row-major (index
// x*resolution + y), and serialized little-endian: float32 for height and
// pressure, float64 for Young's modulus.
package export

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pthm-cable/trail/brush"
	"github.com/pthm-cable/trail/byteconv"
	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/logger"
	"github.com/pthm-cable/trail/terrain"
)

// ErrClosed is returned by operations on a torn-down exporter.
var ErrClosed = errors.New("exporter closed")

// Maps is one serialized export.
type Maps struct {
	SimTime    float64
	Sequence   int
	Resolution int
	Height     []byte // float32
	Pressure   []byte // float32
	Young      []byte // float64
}

// Sink receives serialized maps.
type Sink interface {
	WriteMaps(m Maps) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(m Maps) error

func (f SinkFunc) WriteMaps(m Maps) error { return f(m) }

// Options configures an Exporter.
type Options struct {
	StartDelay float64 // seconds before the first export
	Interval   float64 // seconds between exports
}

// OptionsFromConfig converts the export config section.
func OptionsFromConfig(cfg config.ExportConfig) Options {
	return Options{StartDelay: cfg.StartDelay, Interval: cfg.Interval}
}

// Exporter is created on terrain bind and closed on unbind.
type Exporter struct {
	grid  *terrain.Grid
	state *brush.State
	sink  Sink
	opts  Options

	res      int
	height   []float32
	pressure []float32
	young    []float64

	heightBuf, pressureBuf, youngBuf []byte

	next     float64
	sequence int
	closed   bool
}

// New creates an exporter over grid and the brush state whose accumulators
// feed the pressure map. sink may be nil.
func New(grid *terrain.Grid, state *brush.State, sink Sink, opts Options) *Exporter {
	res := grid.W
	return &Exporter{
		grid:     grid,
		state:    state,
		sink:     sink,
		opts:     opts,
		res:      res,
		height:   make([]float32, res*res),
		pressure: make([]float32, res*res),
		young:    make([]float64, res*res),
		next:     opts.StartDelay,
	}
}

// Resolution returns the side length of every map.
func (e *Exporter) Resolution() int { return e.res }

func (e *Exporter) index(x, y int) int {
	return wrap(x, e.res)*e.res + wrap(y, e.res)
}

func wrap(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// Accumulate adds this tick's per-foot pressure at every cell the brush
// touched. Nothing is added while idle.
func (e *Exporter) Accumulate(idle bool) {
	if e.closed || idle || e.state == nil {
		return
	}
	for _, f := range components.Feet {
		p := float32(e.state.Pressure(f))
		for _, c := range e.state.Touched(f) {
			e.pressure[e.index(c.X, c.Z)] += p
		}
	}
}

// Refresh recomputes the height and Young's modulus maps from the grid and
// current material.
func (e *Exporter) Refresh() {
	if e.closed {
		return
	}
	var m brush.Material
	if e.state != nil {
		m = e.state.Material
	}
	for x := 0; x < e.res; x++ {
		for y := 0; y < e.res; y++ {
			i := x*e.res + y
			e.height[i] = e.grid.Get(x, y)
			e.young[i] = m.YoungModulusGround + m.YoungModulusVegetation*e.grid.VegetationRatio(x, y)
		}
	}
}

// Serialize re-encodes all three maps into the exporter's byte buffers.
func (e *Exporter) Serialize() {
	e.heightBuf = byteconv.AppendFloat32s(e.heightBuf[:0], e.height)
	e.pressureBuf = byteconv.AppendFloat32s(e.pressureBuf[:0], e.pressure)
	e.youngBuf = byteconv.AppendFloat64s(e.youngBuf[:0], e.young)
}

// Due reports whether an export is scheduled at or before simTime.
func (e *Exporter) Due(simTime float64) bool {
	return !e.closed && simTime >= e.next
}

// Step exports when due: refresh, serialize and hand the buffers to the
// sink. It reports whether an export happened.
func (e *Exporter) Step(simTime float64) (bool, error) {
	if e.closed {
		return false, ErrClosed
	}
	if !e.Due(simTime) {
		return false, nil
	}
	if e.opts.Interval > 0 {
		for e.next <= simTime {
			e.next += e.opts.Interval
		}
	} else {
		// A non-positive interval exports once.
		e.next = math.Inf(1)
	}

	e.Refresh()
	e.Serialize()
	e.sequence++

	logger.Debug("maps exported",
		zap.Float64("sim_time", simTime),
		zap.Int("sequence", e.sequence),
		zap.Int("resolution", e.res),
	)

	if e.sink == nil {
		return true, nil
	}
	if err := e.sink.WriteMaps(e.Snapshot(simTime)); err != nil {
		return true, fmt.Errorf("writing maps: %w", err)
	}
	return true, nil
}

// Snapshot returns the current serialized buffers. The slices are reused by
// the next Serialize.
func (e *Exporter) Snapshot(simTime float64) Maps {
	return Maps{
		SimTime:    simTime,
		Sequence:   e.sequence,
		Resolution: e.res,
		Height:     e.heightBuf,
		Pressure:   e.pressureBuf,
		Young:      e.youngBuf,
	}
}

// HeightAt returns the last refreshed height at [x][y].
func (e *Exporter) HeightAt(x, y int) float32 { return e.height[e.index(x, y)] }

// PressureAt returns the accumulated pressure at [x][y].
func (e *Exporter) PressureAt(x, y int) float32 { return e.pressure[e.index(x, y)] }

// YoungAt returns the last refreshed Young's modulus at [x][y].
func (e *Exporter) YoungAt(x, y int) float64 { return e.young[e.index(x, y)] }

// HeightBytes returns the serialized height map.
func (e *Exporter) HeightBytes() []byte { return e.heightBuf }

// PressureBytes returns the serialized pressure map.
func (e *Exporter) PressureBytes() []byte { return e.pressureBuf }

// YoungBytes returns the serialized Young's modulus map.
func (e *Exporter) YoungBytes() []byte { return e.youngBuf }

// Exports returns how many exports have run.
func (e *Exporter) Exports() int { return e.sequence }

// Close releases the buffers. Further Step calls return ErrClosed.
func (e *Exporter) Close() {
	e.closed = true
	e.height, e.pressure, e.young = nil, nil, nil
	e.heightBuf, e.pressureBuf, e.youngBuf = nil, nil, nil
}
