// Package stats tracks overlay health counters for display in the dashboard
// and periodic console output. Every failure mode in the pipeline degrades to
// "no visible change", so these counters are the only place staleness and
// omission become observable.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker counts pipeline events. Counters are atomics so hot-path increments
// from the poll goroutine never contend with dashboard reads.
type Tracker struct {
	start              atomic.Int64
	refreshes          atomic.Uint64
	refreshFailures    atomic.Uint64
	skippedUnconfig    atomic.Uint64
	lateDiscards       atomic.Uint64
	unresolvedSpots    atomic.Uint64
	primitivesDrawn    atomic.Uint64
	primitivesDropped  atomic.Uint64
	lastRefreshUnixSec atomic.Int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Uptime            time.Duration
	Refreshes         uint64
	RefreshFailures   uint64
	SkippedUnconfig   uint64
	LateDiscards      uint64
	UnresolvedSpots   uint64
	PrimitivesDrawn   uint64
	PrimitivesDropped uint64
	LastRefresh       time.Time
}

// NewTracker creates a tracker with the uptime clock started.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// IncrementRefresh records one committed feed refresh.
func (t *Tracker) IncrementRefresh() {
	t.refreshes.Add(1)
	t.lastRefreshUnixSec.Store(time.Now().Unix())
}

// IncrementRefreshFailure records a retrieval or parse failure.
func (t *Tracker) IncrementRefreshFailure() {
	t.refreshFailures.Add(1)
}

// IncrementSkippedUnconfigured records a scheduled refresh skipped because no
// callsign is configured.
func (t *Tracker) IncrementSkippedUnconfigured() {
	t.skippedUnconfig.Add(1)
}

// IncrementLateDiscard records a refresh result thrown away because its
// session was torn down while the retrieval was in flight.
func (t *Tracker) IncrementLateDiscard() {
	t.lateDiscards.Add(1)
}

// IncrementUnresolvedSpot records a spot skipped for an unusable locator.
func (t *Tracker) IncrementUnresolvedSpot() {
	t.unresolvedSpots.Add(1)
}

// AddPrimitivesDrawn records primitives created during a redraw pass.
func (t *Tracker) AddPrimitivesDrawn(n int) {
	if n > 0 {
		t.primitivesDrawn.Add(uint64(n))
	}
}

// AddPrimitivesDestroyed records primitives removed during teardown/redraw.
func (t *Tracker) AddPrimitivesDestroyed(n int) {
	if n > 0 {
		t.primitivesDropped.Add(uint64(n))
	}
}

// GetSnapshot returns a copy of all counters.
func (t *Tracker) GetSnapshot() Snapshot {
	snap := Snapshot{
		Uptime:            time.Since(time.Unix(0, t.start.Load())),
		Refreshes:         t.refreshes.Load(),
		RefreshFailures:   t.refreshFailures.Load(),
		SkippedUnconfig:   t.skippedUnconfig.Load(),
		LateDiscards:      t.lateDiscards.Load(),
		UnresolvedSpots:   t.unresolvedSpots.Load(),
		PrimitivesDrawn:   t.primitivesDrawn.Load(),
		PrimitivesDropped: t.primitivesDropped.Load(),
	}
	if sec := t.lastRefreshUnixSec.Load(); sec > 0 {
		snap.LastRefresh = time.Unix(sec, 0)
	}
	return snap
}

// Reset zeroes all counters and restarts the uptime clock.
func (t *Tracker) Reset() {
	t.refreshes.Store(0)
	t.refreshFailures.Store(0)
	t.skippedUnconfig.Store(0)
	t.lateDiscards.Store(0)
	t.unresolvedSpots.Store(0)
	t.primitivesDrawn.Store(0)
	t.primitivesDropped.Store(0)
	t.lastRefreshUnixSec.Store(0)
	t.start.Store(time.Now().UnixNano())
}

// SnapshotLines returns human-readable stats ready for console display.
func (t *Tracker) SnapshotLines() []string {
	snap := t.GetSnapshot()
	lines := make([]string, 0, 3)
	lines = append(lines, fmt.Sprintf("Refreshes: %s ok, %s failed, %s skipped",
		humanize.Comma(int64(snap.Refreshes)),
		humanize.Comma(int64(snap.RefreshFailures)),
		humanize.Comma(int64(snap.SkippedUnconfig))))
	lines = append(lines, fmt.Sprintf("Primitives: %s drawn, %s destroyed, %s spots unresolvable",
		humanize.Comma(int64(snap.PrimitivesDrawn)),
		humanize.Comma(int64(snap.PrimitivesDropped)),
		humanize.Comma(int64(snap.UnresolvedSpots))))
	last := "never"
	if !snap.LastRefresh.IsZero() {
		last = humanize.Time(snap.LastRefresh)
	}
	lines = append(lines, fmt.Sprintf("Last refresh: %s (late discards: %d, up %s)",
		last, snap.LateDiscards, snap.Uptime.Truncate(time.Second)))
	return lines
}
