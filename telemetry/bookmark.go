package telemetry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pthm-cable/trail/logger"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkGRFSpike         BookmarkType = "grf_spike"
	BookmarkDeformationStall BookmarkType = "deformation_stall"
	BookmarkBrushFailure     BookmarkType = "brush_failure"
	BookmarkSettled          BookmarkType = "settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark() {
	logger.Info("bookmark",
		zap.String("type", string(b.Type)),
		zap.Int32("tick", b.Tick),
		zap.String("description", b.Description),
	)
}

// settleWindows is how many quiet windows in a row count as settled.
const settleWindows = 3

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	quietWindows int
	settled      bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// GRF spike: window peak > 2x the rolling average peak
	if b := bd.checkGRFSpike(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Deformation stall: feet landed but nothing was pressed in
	if b := bd.checkDeformationStall(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if stats.BrushErrors > 0 {
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkBrushFailure,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d brush calls failed", stats.BrushErrors),
		})
	}

	// Settled: no brush activity for several windows
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkGRFSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.GRFPeak
	}
	avg := sum / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.GRFPeak > avg*2 {
		return &Bookmark{
			Type:        BookmarkGRFSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Peak GRF %.0f N is %.1fx average (%.0f N)", stats.GRFPeak, stats.GRFPeak/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkDeformationStall(stats WindowStats) *Bookmark {
	if stats.Landings == 0 || stats.Deforms > 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkDeformationStall,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d landings without a deform call", stats.Landings),
	}
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.Deforms+stats.Stabilizes+stats.Smooths > 0 {
		bd.quietWindows = 0
		bd.settled = false
		return nil
	}
	bd.quietWindows++
	if bd.quietWindows < settleWindows || bd.settled {
		return nil
	}
	bd.settled = true
	return &Bookmark{
		Type:        BookmarkSettled,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No brush activity for %d windows", bd.quietWindows),
	}
}
