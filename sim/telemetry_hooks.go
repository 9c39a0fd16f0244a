package sim

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pthm-cable/trail/components"
	"github.com/pthm-cable/trail/logger"
	"github.com/pthm-cable/trail/telemetry"
)

// recordTelemetry samples per-walker contact and force state for the
// current window.
func (s *Sim) recordTelemetry() {
	query := s.walkerFilter.Query()
	for query.Next() {
		w, _, g, _, res, _ := query.Get()

		s.collector.RecordContact(g, res)
		s.tracker.UpdatePosition(w.ID, g.COM.X, g.COM.Z)
		for _, f := range components.Feet {
			if g.Feet[f].Grounded {
				s.tracker.RecordGRF(w.ID, res.VerticalMagnitude(f))
			}
		}
	}
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Sim) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.Walkers(), telemetry.SummarizeTerrain(s.grid))
	perfStats := s.perf.Stats()

	if s.opts.StatsCallback != nil {
		s.opts.StatsCallback(stats)
	}

	if s.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if out := s.opts.Output; out != nil {
		if err := out.WriteTelemetry(stats); err != nil {
			logger.Error("failed to write telemetry", zap.Error(err))
		}
		if err := out.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			logger.Error("failed to write perf", zap.Error(err))
		}
	}
	if err := s.writeEvents(); err != nil {
		logger.Error("failed to write events", zap.Error(err))
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.opts.LogStats {
			bm.LogBookmark()
		}
		if out := s.opts.Output; out != nil {
			if err := out.WriteBookmark(bm); err != nil {
				logger.Error("failed to write bookmark", zap.Error(err))
			}
		}
		if s.opts.SnapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

// writeEvents drains the buffered footfall and force records.
func (s *Sim) writeEvents() error {
	out := s.opts.Output
	err := multierr.Combine(
		out.WriteFootfalls(s.footfalls),
		out.WriteForces(s.forceLog),
	)
	s.footfalls = s.footfalls[:0]
	s.forceLog = s.forceLog[:0]
	return err
}

// BuildSnapshot captures the current run state. The bound terrain is
// persisted so the snapshot's terrain name resolves in the store.
func (s *Sim) BuildSnapshot(bm *telemetry.Bookmark) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		Seed:     s.opts.Seed,
		Tick:     s.tick,
		SimTime:  s.simTime,
		Bookmark: bm,
	}

	if g := s.grid; g != nil {
		if err := g.Save(); err != nil {
			logger.Warn("failed to persist terrain for snapshot", zap.Error(err))
		}
		sum := telemetry.SummarizeTerrain(g)
		size := g.Size()
		snap.Terrain = telemetry.TerrainState{
			Name:            g.Name(),
			Tag:             g.Tag(),
			Resolution:      g.W,
			SizeX:           size.X,
			SizeY:           size.Y,
			SizeZ:           size.Z,
			HeightMin:       sum.HeightMin,
			HeightMean:      sum.HeightMean,
			DisplacedVolume: sum.DisplacedVolume,
		}
	}

	query := s.walkerFilter.Query()
	for query.Next() {
		w, _, g, _, _, contact := query.Get()

		ws := telemetry.WalkerState{
			ID:    w.ID,
			Name:  w.Name,
			ComX:  g.COM.X,
			ComZ:  g.COM.Z,
			Stats: s.tracker.Get(w.ID).ToJSON(),
		}
		for _, f := range components.Feet {
			c := &contact[f]
			ws.Feet[f] = telemetry.FootState{
				Phase:              c.Phase().String(),
				Grounded:           g.Feet[f].Grounded,
				Elapsed:            c.Elapsed,
				StabilizationCount: c.StabilizationCount,
				GaussianCount:      c.GaussianCount,
				LiftOffX:           c.LiftOffX,
				LiftOffZ:           c.LiftOffZ,
				HasLiftOff:         c.HasLiftOff,
				PressureTime:       c.AccumulatedPressureTime,
			}
		}
		snap.Walkers = append(snap.Walkers, ws)
	}

	return snap
}

// saveSnapshot writes a snapshot into the snapshot directory.
func (s *Sim) saveSnapshot(bm *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(s.BuildSnapshot(bm), s.opts.SnapshotDir)
	if err != nil {
		logger.Error("failed to save snapshot", zap.Error(err))
		return
	}
	logger.Info("snapshot saved", zap.String("path", path), zap.Int32("tick", s.tick))
}
