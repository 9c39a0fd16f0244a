// Package sim runs walkers over a deformable terrain.
//
// Walkers are ark ECS entities. Each tick runs the pipeline in a fixed
// order: gait, sensing, materials, forces, scheduler, export and telemetry.
// A single footprint brush is active at a time; it belongs to the bound
// terrain.
package sim

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/brush"
	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/export"
	"github.com/pthm-cable/trail/forces"
	"github.com/pthm-cable/trail/gait"
	"github.com/pthm-cable/trail/logger"
	"github.com/pthm-cable/trail/materials"
	"github.com/pthm-cable/trail/scheduler"
	"github.com/pthm-cable/trail/telemetry"
	"github.com/pthm-cable/trail/terrain"
)

// Options configures a Sim beyond the loaded config.
type Options struct {
	Seed int64

	// Output receives CSV logs and, unless Sink is set, map exports.
	// May be nil.
	Output *telemetry.OutputManager
	Sink   export.Sink

	LogStats      bool
	StatsCallback func(telemetry.WindowStats)
	SnapshotDir   string // bookmark snapshots; empty disables
}

// Sim holds the complete simulation state.
type Sim struct {
	cfg  *config.Config
	opts Options
	dt   float64

	world *ecs.World

	walkerMapper *ecs.Map6[
		components.Walker,
		components.Body,
		components.Gait,
		components.Sensing,
		forces.Result,
		scheduler.Contact,
	]
	walkerFilter *ecs.Filter6[
		components.Walker,
		components.Body,
		components.Gait,
		components.Sensing,
		forces.Result,
		scheduler.Contact,
	]
	walkerMap  *ecs.Map1[components.Walker]
	contactMap *ecs.Map1[scheduler.Contact]

	// Gait drivers by walker ID
	drivers    map[uint32]*gait.Walker
	entities   map[uint32]ecs.Entity
	gaitParams gait.Params

	// Bound terrain
	grid      *terrain.Grid
	initial   *terrain.InitialConditions
	footprint *brush.Footprint
	exporter  *export.Exporter
	boundAt   float64
	slot      brush.Slot
	stamp     *brush.Stamp

	sched  *scheduler.Scheduler
	source *materials.Source
	preset materials.Preset

	// Telemetry
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	tracker   *telemetry.WalkerTracker
	footfalls []telemetry.Footfall
	forceLog  []telemetry.ForceRecord

	// State
	tick    int32
	simTime float64
	nextID  uint32
}

// New creates a simulation with no terrain bound and no walkers.
func New(cfg *config.Config, opts Options) (*Sim, error) {
	source, err := materials.SourceFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("materials: %w", err)
	}

	world := ecs.NewWorld()
	s := &Sim{
		cfg:   cfg,
		opts:  opts,
		dt:    cfg.Physics.DT,
		world: world,
		walkerMapper: ecs.NewMap6[
			components.Walker,
			components.Body,
			components.Gait,
			components.Sensing,
			forces.Result,
			scheduler.Contact,
		](world),
		walkerFilter: ecs.NewFilter6[
			components.Walker,
			components.Body,
			components.Gait,
			components.Sensing,
			forces.Result,
			scheduler.Contact,
		](world),
		walkerMap:  ecs.NewMap1[components.Walker](world),
		contactMap: ecs.NewMap1[scheduler.Contact](world),
		drivers:    make(map[uint32]*gait.Walker),
		entities:   make(map[uint32]ecs.Entity),
		gaitParams: gait.ParamsFromConfig(cfg.Gait),
		stamp: &brush.Stamp{
			FootRadius: cfg.Brush.FootRadius,
			LayerDepth: cfg.Brush.LayerDepth,
			Margin:     cfg.Brush.Margin,
		},
		sched:     scheduler.New(scheduler.FromConfig(cfg)),
		source:    source,
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks: telemetry.NewBookmarkDetector(10),
		tracker:   telemetry.NewWalkerTracker(),
	}
	if s.opts.Sink == nil && s.opts.Output != nil {
		s.opts.Sink = s.opts.Output
	}
	return s, nil
}

// BindTerrain makes grid the deformed terrain. Any previously bound terrain
// is unbound first. Initial conditions are captured before any deformation
// and a fresh footprint takes the brush slot.
func (s *Sim) BindTerrain(grid *terrain.Grid) {
	if grid == nil {
		return
	}
	if s.grid != nil {
		s.UnbindTerrain()
	}

	s.grid = grid
	s.initial = terrain.CaptureInitialConditions(grid)
	s.footprint = brush.NewFootprint(grid.Name(), grid, s.stamp)
	s.slot.Activate(s.footprint)
	s.boundAt = s.simTime

	if s.cfg.Export.Enabled {
		s.exporter = export.New(grid, s.footprint.State(), s.opts.Sink, export.OptionsFromConfig(s.cfg.Export))
	}

	logger.Info("terrain bound",
		zap.String("name", grid.Name()),
		zap.String("tag", grid.Tag()),
		zap.String("mode", s.source.Mode.String()),
		zap.Int("resolution", grid.W),
		zap.Bool("export", s.exporter != nil),
	)
}

// UnbindTerrain tears down the exporter and footprint of the bound terrain
// and resets every walker's contact state.
func (s *Sim) UnbindTerrain() {
	if s.grid == nil {
		return
	}
	if s.exporter != nil {
		s.exporter.Close()
		s.exporter = nil
	}
	s.slot.Deactivate(s.footprint)

	logger.Info("terrain unbound", zap.String("name", s.grid.Name()))

	s.grid, s.initial, s.footprint = nil, nil, nil

	query := s.walkerFilter.Query()
	for query.Next() {
		_, _, _, _, _, contact := query.Get()
		*contact = scheduler.Contact{}
	}
}

// AddWalker spawns a walker at start, in world coordinates relative to the
// grid origin, and returns its ID.
func (s *Sim) AddWalker(name string, start r3.Vec) uint32 {
	id := s.nextID
	s.nextID++

	walker := components.Walker{ID: id, Name: name}
	body := components.BodyFromConfig(s.cfg)
	g := components.Gait{COM: start, Forward: r3.Vec{X: 1}}
	sensing := components.Sensing{}
	res := forces.Result{}
	contact := scheduler.Contact{}

	entity := s.walkerMapper.NewEntity(&walker, &body, &g, &sensing, &res, &contact)
	s.entities[id] = entity
	s.drivers[id] = gait.NewWalker(start, s.gaitParams, s.dt)
	s.tracker.Register(id, name)

	logger.Debug("walker added",
		zap.Uint32("id", id),
		zap.String("name", name),
		zap.Float64("x", start.X),
		zap.Float64("z", start.Z),
	)
	return id
}

// RemoveWalker despawns a walker. Unknown IDs are ignored.
func (s *Sim) RemoveWalker(id uint32) {
	entity, ok := s.entities[id]
	if !ok {
		return
	}
	s.walkerMapper.Remove(entity)
	delete(s.entities, id)
	delete(s.drivers, id)
	s.tracker.Remove(id)
}

// SpawnFromConfig adds the configured number of walkers, spaced along z.
func (s *Sim) SpawnFromConfig() {
	gc := s.cfg.Gait
	for i := 0; i < gc.Walkers; i++ {
		start := r3.Vec{X: gc.Start.X, Y: gc.Start.Y, Z: gc.Start.Z + float64(i)*gc.Spacing}
		s.AddWalker(fmt.Sprintf("walker-%d", i+1), start)
	}
}

// Contact returns a copy of a walker's scheduler state.
func (s *Sim) Contact(id uint32) (scheduler.Contact, bool) {
	entity, ok := s.entities[id]
	if !ok {
		return scheduler.Contact{}, false
	}
	return *s.contactMap.Get(entity), true
}

// Grid returns the bound terrain, or nil.
func (s *Sim) Grid() *terrain.Grid { return s.grid }

// Exporter returns the bound terrain's exporter, or nil.
func (s *Sim) Exporter() *export.Exporter { return s.exporter }

// Footprint returns the bound terrain's footprint, or nil.
func (s *Sim) Footprint() *brush.Footprint { return s.footprint }

// Slot returns the brush slot.
func (s *Sim) Slot() *brush.Slot { return &s.slot }

// Preset returns the material preset applied on the last tick.
func (s *Sim) Preset() materials.Preset { return s.preset }

// SchedulerConfig returns the live scheduler configuration.
func (s *Sim) SchedulerConfig() scheduler.Config { return s.sched.Config }

// Tracker returns the per-walker statistics.
func (s *Sim) Tracker() *telemetry.WalkerTracker { return s.tracker }

// Tick returns the number of completed ticks.
func (s *Sim) Tick() int32 { return s.tick }

// SimTime returns elapsed simulation time in seconds.
func (s *Sim) SimTime() float64 { return s.simTime }

// Walkers returns the number of walkers.
func (s *Sim) Walkers() int { return len(s.entities) }

// Close writes buffered events and unbinds the terrain.
func (s *Sim) Close() error {
	err := s.writeEvents()
	s.UnbindTerrain()
	return err
}
