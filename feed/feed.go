// Package feed polls the RBN map endpoint on a schedule, retains the spots
// inside a trailing time window, and derives aggregate statistics. Failures
// never surface to the caller: the previous retained set and stats stay in
// place until a refresh succeeds.
package feed

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"propmap/grid"
	"propmap/spot"
	"propmap/stats"
)

// UnsetCallsign is the placeholder meaning "no callsign configured yet".
// A feed configured with it (or with an empty string) never issues a request.
const UnsetCallsign = "NOCALL"

// Stats summarizes the currently retained spot set. It is recomputed wholly
// on every successful refresh, never incrementally.
type Stats struct {
	TotalSpots      int
	UniqueReporters int
	AverageSNR      float64 // mean of present SNR values, 1 decimal, 0 when none
}

// LocatorCache is the optional reporter→locator fallback consulted when a
// spot arrives without a usable grid.
type LocatorCache interface {
	Lookup(call string) (string, bool)
	Upsert(call, grid string, seen time.Time) error
}

// Feed owns the retained spot set and its stats.
type Feed struct {
	client   *Client
	callsign string
	limit    int
	tracker  *stats.Tracker
	grids    LocatorCache // may be nil
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	retained []spot.Spot
	stats    Stats
}

// New creates a feed. tracker and cache may be nil; logger falls back to the
// standard logger.
func New(client *Client, callsign string, limit int, tracker *stats.Tracker, grids LocatorCache, logger *log.Logger) *Feed {
	if limit <= 0 {
		limit = 50
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Feed{
		client:   client,
		callsign: callsign,
		limit:    limit,
		tracker:  tracker,
		grids:    grids,
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether a usable callsign is set.
func (f *Feed) Configured() bool {
	return f.callsign != "" && f.callsign != UnsetCallsign
}

// Refresh polls the feed once. On success the retained set is replaced
// wholesale with the spots inside now−window and stats are recomputed;
// updated is true. On failure (or when unconfigured) the prior retained set
// and stats are returned unchanged and updated is false.
func (f *Feed) Refresh(ctx context.Context, window time.Duration) (retained []spot.Spot, current Stats, updated bool) {
	if !f.Configured() {
		if f.tracker != nil {
			f.tracker.IncrementSkippedUnconfigured()
		}
		return f.Snapshot()
	}

	fetched, err := f.client.FetchSpots(ctx, f.callsign, f.limit)
	if err != nil {
		if f.tracker != nil {
			f.tracker.IncrementRefreshFailure()
		}
		f.logger.Printf("feed: refresh failed, keeping stale data: %v", err)
		spots, prior, _ := f.Snapshot()
		return spots, prior, false
	}

	now := f.now()
	cutoff := now.Add(-window)
	kept := make([]spot.Spot, 0, len(fetched))
	seen := make(map[uint64]struct{}, len(fetched))
	for _, s := range fetched {
		if !s.Time.After(cutoff) {
			continue
		}
		if _, dup := seen[s.Hash64()]; dup {
			continue
		}
		seen[s.Hash64()] = struct{}{}
		kept = append(kept, s)
	}

	f.reconcileLocators(kept, now)
	computed := computeStats(kept)

	f.mu.Lock()
	f.retained = kept
	f.stats = computed
	f.mu.Unlock()

	if f.tracker != nil {
		f.tracker.IncrementRefresh()
	}
	out := make([]spot.Spot, len(kept))
	copy(out, kept)
	return out, computed, true
}

// reconcileLocators records freshly observed reporter grids and backfills
// spots whose own grid does not resolve from the cache.
func (f *Feed) reconcileLocators(spots []spot.Spot, now time.Time) {
	if f.grids == nil {
		return
	}
	for i := range spots {
		if _, ok := grid.Resolve(spots[i].Grid); ok {
			if err := f.grids.Upsert(spots[i].Reporter, spots[i].Grid, now); err != nil {
				f.logger.Printf("feed: locator cache upsert for %s: %v", spots[i].Reporter, err)
			}
			continue
		}
		if cached, ok := f.grids.Lookup(spots[i].Reporter); ok {
			spots[i].Grid = cached
		}
	}
}

// Snapshot returns copies of the retained set and stats without refreshing.
func (f *Feed) Snapshot() ([]spot.Spot, Stats, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]spot.Spot, len(f.retained))
	copy(out, f.retained)
	return out, f.stats, false
}

func computeStats(spots []spot.Spot) Stats {
	s := Stats{TotalSpots: len(spots)}
	reporters := make(map[string]struct{}, len(spots))
	var snrSum float64
	snrCount := 0
	for _, sp := range spots {
		reporters[sp.Reporter] = struct{}{}
		if sp.HasSNR {
			snrSum += sp.SNR
			snrCount++
		}
	}
	s.UniqueReporters = len(reporters)
	if snrCount > 0 {
		s.AverageSNR = math.Round(snrSum/float64(snrCount)*10) / 10
	}
	return s
}
