package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/guptarohit/asciigraph"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/logger"
	"github.com/pthm-cable/trail/sim"
	"github.com/pthm-cable/trail/telemetry"
	"github.com/pthm-cable/trail/terrain"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Log window stats and perf")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshots")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, maps and config snapshot")
	seed := flag.Int64("seed", 0, "Terrain noise seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 3000, "Stop after N ticks (0 = unlimited)")
	storeDriver := flag.String("store", "", "Heightmap store: memory or sqlite (empty = use config)")
	resume := flag.Bool("resume", false, "Start from the stored heightmap instead of generating one")
	filter := flag.String("filter", "none", "Filter applied to the terrain before walking: none, average, gauss3, gauss5, custom, kernel")
	plot := flag.Bool("plot", true, "Print an ASCII plot of peak vertical GRF per window at exit")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *storeDriver != "" {
		cfg.Store.Driver = *storeDriver
	}

	if err := logger.FromConfig(cfg.Logging, true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if err := run(cfg, runOptions{
		seed:        rngSeed,
		logStats:    *logStats,
		snapshotDir: *snapshotDir,
		outputDir:   *outputDir,
		maxTicks:    *maxTicks,
		resume:      *resume,
		filter:      *filter,
		plot:        *plot,
	}); err != nil {
		logger.Error("run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type runOptions struct {
	seed        int64
	logStats    bool
	snapshotDir string
	outputDir   string
	maxTicks    int
	resume      bool
	filter      string
	plot        bool
}

func run(cfg *config.Config, opts runOptions) (err error) {
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	grid, err := buildTerrain(cfg, opts.seed, store, opts.resume, opts.filter)
	if err != nil {
		return err
	}

	om, err := telemetry.NewOutputManager(opts.outputDir, cfg.Telemetry.PerTickForces)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, om.Close()) }()
	if err := om.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	var peaks []float64
	s, err := sim.New(cfg, sim.Options{
		Seed:        opts.seed,
		Output:      om,
		LogStats:    opts.logStats,
		SnapshotDir: opts.snapshotDir,
		StatsCallback: func(w telemetry.WindowStats) {
			peaks = append(peaks, w.GRFPeak)
		},
	})
	if err != nil {
		return err
	}
	s.BindTerrain(grid)
	s.SpawnFromConfig()

	logger.Info("starting headless simulation",
		zap.Int64("seed", opts.seed),
		zap.Int("walkers", s.Walkers()),
		zap.Int("max_ticks", opts.maxTicks),
		zap.String("store", cfg.Store.Driver),
		zap.String("output_dir", om.Dir()),
	)

	start := time.Now()
	for opts.maxTicks <= 0 || int(s.Tick()) < opts.maxTicks {
		s.Step()
	}

	// Final snapshot goes to the snapshot directory, else the output directory.
	var path string
	if opts.snapshotDir != "" {
		path, err = telemetry.SaveSnapshot(s.BuildSnapshot(nil), opts.snapshotDir)
	} else if om != nil {
		path, err = om.WriteSnapshot(s.BuildSnapshot(nil))
	}
	if err != nil {
		logger.Error("failed to save final snapshot", zap.Error(err))
		err = nil
	} else if path != "" {
		logger.Info("final snapshot saved", zap.String("path", path))
	}

	sum := telemetry.SummarizeTerrain(grid)
	logger.Info("max ticks reached",
		zap.Int32("tick", s.Tick()),
		zap.Float64("sim_time", s.SimTime()),
		zap.Duration("wall", time.Since(start)),
		zap.Float64("height_min", sum.HeightMin),
		zap.Float64("displaced_volume", sum.DisplacedVolume),
	)

	if opts.plot && len(peaks) > 1 {
		fmt.Println(asciigraph.Plot(peaks,
			asciigraph.Height(12),
			asciigraph.Width(72),
			asciigraph.Caption("peak vertical GRF per window (N)"),
		))
	}

	return s.Close()
}

// openStore returns the configured heightmap store and its closer.
func openStore(cfg config.StoreConfig) (terrain.Store, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return terrain.NewMemoryStore(), func() error { return nil }, nil
	case "sqlite":
		st, err := terrain.OpenSQLStore(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalid, cfg.Driver)
	}
}

// buildTerrain generates the configured terrain, or loads the stored one
// when resuming. A filter is baked into the starting heights, so it does not
// count as displacement.
func buildTerrain(cfg *config.Config, seed int64, store terrain.Store, resume bool, filter string) (*terrain.Grid, error) {
	tc := cfg.Terrain
	opts := terrain.GridOptions{
		Name:       tc.Name,
		Tag:        tc.Tag,
		Resolution: tc.Resolution,
		Size:       r3.Vec{X: tc.Size.X, Y: tc.Size.Y, Z: tc.Size.Z},
		Store:      store,
	}

	heights, vegetation := terrain.Generate(terrain.GenerateOptions{
		Resolution: tc.Resolution,
		Seed:       seed,
		Base:       tc.BaseHeight,
		Relief:     noiseParams(tc.Noise),
		Vegetation: noiseParams(tc.Vegetation),
	})
	opts.Heights, opts.Vegetation = heights, vegetation

	if resume {
		w, h, stored, err := store.LoadHeights(tc.Name)
		switch {
		case errors.Is(err, terrain.ErrNotFound):
			logger.Warn("no stored heightmap, generating", zap.String("name", tc.Name))
		case err != nil:
			return nil, err
		case w != tc.Resolution || h != tc.Resolution:
			return nil, fmt.Errorf("stored heightmap %q is %dx%d, config resolution is %d", tc.Name, w, h, tc.Resolution)
		default:
			opts.Heights = stored
		}
	}

	g, err := terrain.NewGrid(opts)
	if err != nil || filter == "" || filter == "none" {
		return g, err
	}
	if err := applyFilter(g, filter, cfg.Deformation.Gaussian); err != nil {
		return nil, err
	}
	opts.Heights = g.Raw()
	return terrain.NewGrid(opts)
}

func noiseParams(n config.NoiseConfig) terrain.NoiseParams {
	return terrain.NoiseParams{
		Scale:      n.Scale,
		Octaves:    n.Octaves,
		Lacunarity: n.Lacunarity,
		Gain:       n.Gain,
		Amplitude:  n.Amplitude,
	}
}

// applyFilter runs one of the whole-grid filters.
func applyFilter(g *terrain.Grid, name string, gc config.GaussianConfig) error {
	switch name {
	case "", "none":
		return nil
	case "average":
		return g.AverageSmooth()
	case "gauss3":
		return g.GaussianBlur3()
	case "gauss5":
		return g.GaussianBlur5()
	case "custom":
		return g.GaussianBlurCustom()
	case "kernel":
		k, err := terrain.CalculateKernel(gc.KernelLength, gc.KernelSigma)
		if err != nil {
			return err
		}
		return g.GaussianBlurKernel(k)
	default:
		return fmt.Errorf("unknown filter %q", name)
	}
}
