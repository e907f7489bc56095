// Package overlay owns the set of currently drawn primitives and the polling
// lifecycle that keeps them consistent with the spot feed. Redraw is never
// incremental: every pass destroys the previous pass's primitives and
// recreates the eligible set from scratch.
package overlay

import (
	"context"
	"log"
	"sync"
	"time"

	"propmap/feed"
	"propmap/geo"
	"propmap/spot"
	"propmap/stats"
)

// DefaultHome is the path origin used when no home locator is configured.
// JN76 square center, matching the feed operator's default region.
var DefaultHome = geo.LatLon{Lat: 46.5, Lon: 15.0}

const defaultPollInterval = 60 * time.Second

// Refresher is the feed dependency of the manager.
type Refresher interface {
	Configured() bool
	Refresh(ctx context.Context, window time.Duration) ([]spot.Spot, feed.Stats, bool)
}

// Options configures a Manager.
type Options struct {
	Feed       Refresher
	Surface    Surface
	Control    Control // optional
	Tracker    *stats.Tracker
	Logger     *log.Logger
	Home       geo.LatLon // zero value falls back to DefaultHome
	Interval   time.Duration
	PathPoints int
	Filter     FilterState
}

// Manager drives the overlay through its Disabled/Enabled state machine.
type Manager struct {
	feed       Refresher
	surface    Surface
	control    Control
	tracker    *stats.Tracker
	logger     *log.Logger
	home       geo.LatLon
	interval   time.Duration
	pathPoints int

	mu       sync.Mutex
	enabled  bool
	session  uint64 // bumped on every enable; gates in-flight commits
	cancel   context.CancelFunc
	filter   FilterState
	arena    *arena
	retained []spot.Spot
}

// NewManager creates a disabled manager.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.PathPoints <= 0 {
		opts.PathPoints = geo.DefaultPathPoints
	}
	if opts.Home == (geo.LatLon{}) {
		opts.Home = DefaultHome
	}
	filter := opts.Filter
	if filter.Band == "" {
		filter.Band = spot.BandAll
	}
	if filter.WindowMinutes <= 0 {
		filter.WindowMinutes = 15
	}
	return &Manager{
		feed:       opts.Feed,
		surface:    opts.Surface,
		control:    opts.Control,
		tracker:    opts.Tracker,
		logger:     opts.Logger,
		home:       opts.Home,
		interval:   opts.Interval,
		pathPoints: opts.PathPoints,
		filter:     filter,
		arena:      newArena(),
	}
}

// Enable transitions Disabled→Enabled: starts the recurring schedule and
// triggers an immediate refresh. Enabling an already-enabled overlay does
// not duplicate the schedule; it just performs a redraw pass. Without a
// configured callsign the call is a no-op.
func (m *Manager) Enable() {
	m.mu.Lock()
	if m.enabled {
		m.redrawLocked()
		m.mu.Unlock()
		return
	}
	if !m.feed.Configured() {
		m.logger.Printf("overlay: enable skipped, no callsign configured")
		m.mu.Unlock()
		return
	}
	m.enabled = true
	m.session++
	session := m.session
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.pushFilterLocked()
	m.mu.Unlock()

	go m.run(ctx, session)
}

// Disable transitions Enabled→Disabled: cancels the schedule, destroys every
// tracked primitive, and detaches the control surface. Idempotent.
func (m *Manager) Disable() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.destroyAllLocked()
	m.retained = nil
	control := m.control
	m.mu.Unlock()

	if control != nil {
		control.Detach()
	}
}

// Enabled reports the current lifecycle state.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// run is the recurring schedule for one enabled session: one immediate
// refresh, then one per tick until the session context is cancelled.
func (m *Manager) run(ctx context.Context, session uint64) {
	m.refreshOnce(ctx, session)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshOnce(ctx, session)
		}
	}
}

// refreshOnce polls the feed without holding the manager lock, then commits
// the result only if the session that started the retrieval is still live.
func (m *Manager) refreshOnce(ctx context.Context, session uint64) {
	m.mu.Lock()
	window := time.Duration(m.filter.WindowMinutes) * time.Minute
	m.mu.Unlock()

	spots, st, updated := m.feed.Refresh(ctx, window)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled || m.session != session {
		// The overlay was torn down while the retrieval was in flight;
		// committing now would resurrect primitives on a dead surface.
		if m.tracker != nil {
			m.tracker.IncrementLateDiscard()
		}
		return
	}
	if !updated {
		return
	}
	m.retained = spots
	if m.control != nil {
		m.control.ShowStats(st)
	}
	m.redrawLocked()
}

// SetBand updates the band filter and redraws when enabled.
func (m *Manager) SetBand(band string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if band == "" {
		band = spot.BandAll
	}
	m.filter.Band = band
	m.onFilterChangedLocked()
}

// SetWindowMinutes updates the trailing time window. The retained set itself
// changes on the next poll; the redraw here keeps the drawn set consistent
// with the rest of the filter state.
func (m *Manager) SetWindowMinutes(minutes int) {
	if minutes <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter.WindowMinutes = minutes
	m.onFilterChangedLocked()
}

// SetMinSNR updates the SNR floor and redraws when enabled.
func (m *Manager) SetMinSNR(min float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter.MinSNR = min
	m.onFilterChangedLocked()
}

// SetShowPaths toggles great-circle path rendering and redraws when enabled.
func (m *Manager) SetShowPaths(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter.ShowPaths = show
	m.onFilterChangedLocked()
}

// Filter returns a copy of the current filter state.
func (m *Manager) Filter() FilterState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

func (m *Manager) onFilterChangedLocked() {
	m.pushFilterLocked()
	if m.enabled {
		m.redrawLocked()
	}
}

func (m *Manager) pushFilterLocked() {
	if m.control != nil {
		m.control.ShowFilter(m.filter)
	}
}

// destroyAllLocked removes every tracked primitive from the surface.
func (m *Manager) destroyAllLocked() {
	handles := m.arena.drain()
	for _, h := range handles {
		m.surface.RemovePrimitive(h)
	}
	if m.tracker != nil {
		m.tracker.AddPrimitivesDestroyed(len(handles))
	}
}

// redrawLocked performs one full destroy-then-recreate pass over the retained
// spot set under the current filter.
func (m *Manager) redrawLocked() {
	m.destroyAllLocked()
	gen := m.arena.begin()

	drawn := 0
	for i := range m.retained {
		s := &m.retained[i]
		if m.filter.Band != spot.BandAll && s.Band() != m.filter.Band {
			continue
		}
		if s.HasSNR && s.SNR < m.filter.MinSNR {
			continue
		}
		pos, ok := s.Position()
		if !ok {
			if m.tracker != nil {
				m.tracker.IncrementUnresolvedSpot()
			}
			continue
		}
		tier := spot.TierFor(s.SNR, s.HasSNR)
		m.arena.track(gen, m.surface.AddPrimitive(Primitive{
			Kind:   Marker,
			At:     pos,
			Color:  tier.Color,
			Radius: tier.Radius,
			Label:  s.Reporter,
		}))
		drawn++
		if m.filter.ShowPaths {
			m.arena.track(gen, m.surface.AddPrimitive(Primitive{
				Kind:  PathLine,
				Path:  geo.Path(m.home, pos, m.pathPoints),
				Color: tier.Color,
				Label: s.Reporter,
			}))
			drawn++
		}
	}
	if m.tracker != nil {
		m.tracker.AddPrimitivesDrawn(drawn)
	}
}
