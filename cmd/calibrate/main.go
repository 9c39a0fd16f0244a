package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/trail/config"
	"github.com/pthm-cable/trail/logger"
)

// EvalRecord is one row of calibrate_log.csv.
type EvalRecord struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	Sink         float64 `csv:"sink"`
	Volume       float64 `csv:"volume"`
	Landings     int     `csv:"landings"`
	YoungModulus float64 `csv:"young_modulus"`
	ContactTime  float64 `csv:"contact_time"`
	PoissonRatio float64 `csv:"poisson_ratio"`
	LayerDepth   float64 `csv:"layer_depth"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	tag := flag.String("tag", "Snow", "Material preset to calibrate")
	targetSink := flag.Float64("target-sink", 0.05, "Target deepest footprint, world units")
	targetVolume := flag.Float64("target-volume", 0, "Target displaced volume (0 = not scored)")
	ticks := flag.Int("ticks", 250, "Ticks per trial")
	resolution := flag.Int("resolution", 65, "Trial patch resolution (0 = use config)")
	seeds := flag.Int("seeds", 3, "Number of terrain seeds per evaluation")
	maxEvals := flag.Int("max-evals", 120, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	// Trials log every bind at info level.
	if err := logger.FromConfig(config.LoggingConfig{Level: "warn"}, true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *outputDir == "" {
		fatal("--output is required")
	}
	if *targetSink <= 0 {
		fatal("--target-sink must be positive")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("failed to create output directory", zap.Error(err))
	}

	if err := config.Init(*configPath); err != nil {
		fatal("failed to load config", zap.Error(err))
	}
	baseCfg := config.Cfg()

	params, err := NewParamVector(baseCfg, *tag)
	if err != nil {
		fatal("bad preset", zap.Error(err))
	}

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, baseCfg, *ticks, *resolution, evalSeeds,
		Target{Sink: *targetSink, Volume: *targetVolume})

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}

	popSize := *population
	if popSize == 0 {
		// 4 + floor(3*ln(n))
		popSize = 4 + int(3*math.Log(float64(dim)))
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "calibrate_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		fatal("failed to create log file", zap.Error(err))
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	var bestMeasurement Measurement
	startTime := time.Now()

	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		// Log clamped values, which are the ones the trial used.
		clamped := params.Clamp(params.Denormalize(x))
		m := evaluator.LastMeasurement()
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
			bestMeasurement = m
		}

		rec := []EvalRecord{{
			Eval:         evalCount,
			Fitness:      fitness,
			Sink:         m.Sink,
			Volume:       m.Volume,
			Landings:     m.Landings,
			YoungModulus: clamped[0],
			ContactTime:  clamped[1],
			PoissonRatio: clamped[2],
			LayerDepth:   clamped[3],
		}}
		var werr error
		if evalCount == 1 {
			werr = gocsv.Marshal(rec, logFile)
		} else {
			werr = gocsv.MarshalWithoutHeaders(rec, logFile)
		}
		if werr != nil {
			logger.Error("failed to write eval log", zap.Error(werr))
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: sink=%.4f volume=%.4f fitness=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, m.Sink, m.Volume, fitness, bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Calibrating %q with CMA-ES: %d parameters, population=%d, max_evals=%d\n",
		*tag, dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per trial: %d\n", *seeds, *ticks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		logger.Warn("optimization ended", zap.Error(err))
	}

	// Best params may come from any evaluation, not just the final one.
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.6f (sink=%.4f, volume=%.4f)\n", bestFitness, bestMeasurement.Sink, bestMeasurement.Volume)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to reload config", zap.Error(err))
	}
	if err := params.ApplyToConfig(bestCfg, bestParams); err != nil {
		fatal("failed to apply best parameters", zap.Error(err))
	}

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		logger.Error("failed to write best config", zap.Error(err))
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}

func fatal(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
	logger.Sync()
	os.Exit(1)
}
