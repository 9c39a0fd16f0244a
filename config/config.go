// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	Physics     PhysicsConfig     `yaml:"physics"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Body        BodyConfig        `yaml:"body"`
	Deformation DeformationConfig `yaml:"deformation"`
	Brush       BrushConfig       `yaml:"brush"`
	Mode        string            `yaml:"mode"` // ui, terrain_prefabs, manual_with_vegetation
	Manual      MaterialConfig    `yaml:"manual"`
	Materials   []MaterialConfig  `yaml:"materials"`
	Gait        GaitConfig        `yaml:"gait"`
	Export      ExportConfig      `yaml:"export"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
	Store       StoreConfig       `yaml:"store"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Vec3Config is a plain xyz triple.
type Vec3Config struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// PhysicsConfig holds simulation stepping parameters.
type PhysicsConfig struct {
	DT      float64    `yaml:"dt"`
	Gravity Vec3Config `yaml:"gravity"`
}

// TerrainConfig describes the procedurally generated terrain bound at startup.
type TerrainConfig struct {
	Name       string      `yaml:"name"`
	Tag        string      `yaml:"tag"` // material tag used by terrain_prefabs mode
	Resolution int         `yaml:"resolution"`
	Size       Vec3Config  `yaml:"size"` // world extent; y is the height scale
	BaseHeight float64     `yaml:"base_height"`
	Noise      NoiseConfig `yaml:"noise"`
	Vegetation NoiseConfig `yaml:"vegetation"`
}

// NoiseConfig holds fractal noise parameters.
type NoiseConfig struct {
	Scale      float64 `yaml:"scale"`
	Octaves    int     `yaml:"octaves"`
	Lacunarity float64 `yaml:"lacunarity"`
	Gain       float64 `yaml:"gain"`
	Amplitude  float64 `yaml:"amplitude"`
}

// BodyConfig holds the character's physical properties.
type BodyConfig struct {
	Mass float64 `yaml:"mass"`
}

// DeformationConfig holds scheduler parameters.
type DeformationConfig struct {
	ContactTime       float64        `yaml:"contact_time"`
	TimeOffset        float64        `yaml:"time_offset"`
	MaxStabilizations int            `yaml:"max_stabilizations"`
	Gaussian          GaussianConfig `yaml:"gaussian"`
}

// GaussianConfig holds post-landing smoothing parameters.
type GaussianConfig struct {
	Apply           bool    `yaml:"apply"`
	IterationsLeft  int     `yaml:"iterations_left"`
	IterationsRight int     `yaml:"iterations_right"`
	Strength        float64 `yaml:"strength"`
	Radius          int     `yaml:"radius"`
	MaxFilters      int     `yaml:"max_filters"`
	KernelLength    int     `yaml:"kernel_length"` // used by the custom blur
	KernelSigma     float64 `yaml:"kernel_sigma"`
}

// BrushConfig holds footprint stamp geometry.
type BrushConfig struct {
	FootRadius float64 `yaml:"foot_radius"` // world units
	LayerDepth float64 `yaml:"layer_depth"` // compressible layer thickness, world units
	Margin     int     `yaml:"margin"`      // cells kept clear of the grid border
}

// MaterialConfig is one row of the material preset table.
type MaterialConfig struct {
	Tag                    string  `yaml:"tag"`
	YoungModulus           float64 `yaml:"young_modulus"`
	YoungModulusGround     float64 `yaml:"young_modulus_ground"`
	YoungModulusVegetation float64 `yaml:"young_modulus_vegetation"`
	ContactTime            float64 `yaml:"contact_time"` // 0 keeps the current contact time
	PoissonRatio           float64 `yaml:"poisson_ratio"`
	FilterIterations       int     `yaml:"filter_iterations"`
	ActivateBump           bool    `yaml:"activate_bump"`
}

// GaitConfig drives the synthetic walkers used in headless runs.
type GaitConfig struct {
	Walkers         int        `yaml:"walkers"`
	Start           Vec3Config `yaml:"start"`
	Spacing         float64    `yaml:"spacing"`
	Speed           float64    `yaml:"speed"`
	StepPeriod      float64    `yaml:"step_period"`
	StanceFraction  float64    `yaml:"stance_fraction"`
	StanceWidth     float64    `yaml:"stance_width"`
	LiftHeight      float64    `yaml:"lift_height"`
	ToeOffset       float64    `yaml:"toe_offset"`
	GroundThreshold float64    `yaml:"ground_threshold"`
	SpringFrequency float64    `yaml:"spring_frequency"`
	SpringDamping   float64    `yaml:"spring_damping"`
}

// ExportConfig holds map export settings.
type ExportConfig struct {
	Enabled    bool    `yaml:"enabled"`
	StartDelay float64 `yaml:"start_delay"`
	Interval   float64 `yaml:"interval"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	PerTickForces       bool    `yaml:"per_tick_forces"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// StoreConfig selects the heightmap persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory or sqlite
	DSN    string `yaml:"dsn"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TicksPerSecond int            // round(1/DT)
	MaterialIndex  map[string]int // tag -> index into Materials
	DefaultIndex   int            // index of the Default preset, -1 if missing
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects parameter combinations the simulation cannot run with.
// All failures are reported together.
func (c *Config) Validate() error {
	var err error
	if c.Physics.DT <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: physics.dt must be > 0, got %v", ErrInvalid, c.Physics.DT))
	}
	if c.Terrain.Resolution < 3 {
		err = multierr.Append(err, fmt.Errorf("%w: terrain.resolution must be >= 3, got %d", ErrInvalid, c.Terrain.Resolution))
	}
	if c.Terrain.Size.X <= 0 || c.Terrain.Size.Y <= 0 || c.Terrain.Size.Z <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: terrain.size components must be > 0", ErrInvalid))
	}
	if c.Body.Mass <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: body.mass must be > 0, got %v", ErrInvalid, c.Body.Mass))
	}
	if c.Deformation.ContactTime <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: deformation.contact_time must be > 0, got %v", ErrInvalid, c.Deformation.ContactTime))
	}
	if c.Deformation.MaxStabilizations < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: deformation.max_stabilizations must be >= 0", ErrInvalid))
	}
	g := c.Deformation.Gaussian
	if g.KernelLength <= 0 || g.KernelLength%2 == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: deformation.gaussian.kernel_length must be odd and positive, got %d", ErrInvalid, g.KernelLength))
	}
	if g.KernelSigma <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: deformation.gaussian.kernel_sigma must be > 0, got %v", ErrInvalid, g.KernelSigma))
	}
	if g.Strength < 0 || g.Strength > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: deformation.gaussian.strength must be in [0,1], got %v", ErrInvalid, g.Strength))
	}
	switch c.Mode {
	case "ui", "terrain_prefabs", "manual_with_vegetation":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown mode %q", ErrInvalid, c.Mode))
	}
	if c.Manual.ContactTime < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: manual.contact_time must be >= 0", ErrInvalid))
	}
	for _, m := range c.Materials {
		if m.ContactTime < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: material %q contact_time must be >= 0", ErrInvalid, m.Tag))
		}
	}
	if c.Export.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: export.interval must be > 0", ErrInvalid))
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver))
	}
	return err
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TicksPerSecond = int(1/c.Physics.DT + 0.5)
	if c.Derived.TicksPerSecond < 1 {
		c.Derived.TicksPerSecond = 1
	}

	c.Derived.MaterialIndex = make(map[string]int, len(c.Materials))
	c.Derived.DefaultIndex = -1
	for i, m := range c.Materials {
		c.Derived.MaterialIndex[m.Tag] = i
		if m.Tag == "Default" {
			c.Derived.DefaultIndex = i
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
