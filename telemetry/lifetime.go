package telemetry

import "math"

// WalkerStats tracks per-walker statistics over a run.
type WalkerStats struct {
	Name      string
	Landings  int
	LiftOffs  int
	PeakGRF   float64
	Distance  float64 // centre-of-mass path length
	StampTime float64 // accumulated grounded time inside contact windows

	lastX, lastZ float64
	hasLast      bool
}

// WalkerTracker manages per-walker statistics.
type WalkerTracker struct {
	stats map[uint32]*WalkerStats
}

// NewWalkerTracker creates a new tracker.
func NewWalkerTracker() *WalkerTracker {
	return &WalkerTracker{
		stats: make(map[uint32]*WalkerStats),
	}
}

// Register creates stats for a walker.
func (wt *WalkerTracker) Register(id uint32, name string) {
	wt.stats[id] = &WalkerStats{Name: name}
}

// Get returns a walker's stats, or nil if not found.
func (wt *WalkerTracker) Get(id uint32) *WalkerStats {
	return wt.stats[id]
}

// Remove removes a walker's stats and returns them.
func (wt *WalkerTracker) Remove(id uint32) *WalkerStats {
	stats := wt.stats[id]
	delete(wt.stats, id)
	return stats
}

// RecordLanding increments the landing count.
func (wt *WalkerTracker) RecordLanding(id uint32) {
	if s := wt.stats[id]; s != nil {
		s.Landings++
	}
}

// RecordLiftOff increments the lift-off count.
func (wt *WalkerTracker) RecordLiftOff(id uint32) {
	if s := wt.stats[id]; s != nil {
		s.LiftOffs++
	}
}

// RecordGRF keeps the peak vertical force.
func (wt *WalkerTracker) RecordGRF(id uint32, v float64) {
	if s := wt.stats[id]; s != nil && v > s.PeakGRF {
		s.PeakGRF = v
	}
}

// UpdatePosition adds the ground-plane distance since the last update.
func (wt *WalkerTracker) UpdatePosition(id uint32, x, z float64) {
	s := wt.stats[id]
	if s == nil {
		return
	}
	if s.hasLast {
		s.Distance += math.Hypot(x-s.lastX, z-s.lastZ)
	}
	s.lastX, s.lastZ, s.hasLast = x, z, true
}

// SetStampTime stores the walker's accumulated stamping time.
func (wt *WalkerTracker) SetStampTime(id uint32, t float64) {
	if s := wt.stats[id]; s != nil {
		s.StampTime = t
	}
}

// All returns all tracked stats.
func (wt *WalkerTracker) All() map[uint32]*WalkerStats {
	return wt.stats
}

// Count returns the number of tracked walkers.
func (wt *WalkerTracker) Count() int {
	return len(wt.stats)
}
