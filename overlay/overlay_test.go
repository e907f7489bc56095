package overlay

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"propmap/feed"
	"propmap/spot"
	"propmap/stats"
)

type fakeSurface struct {
	mu      sync.Mutex
	next    Handle
	drawn   map[Handle]Primitive
	adds    int
	removes int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{drawn: make(map[Handle]Primitive)}
}

func (s *fakeSurface) AddPrimitive(p Primitive) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.drawn[s.next] = p
	s.adds++
	return s.next
}

func (s *fakeSurface) RemovePrimitive(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Unknown handles are silently ignored, like a torn-down map layer.
	delete(s.drawn, h)
	s.removes++
}

func (s *fakeSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drawn)
}

type fakeFeed struct {
	mu         sync.Mutex
	configured bool
	spots      []spot.Spot
	stats      feed.Stats
	calls      int
	entered    chan struct{} // signaled when Refresh is entered, if set
	release    chan struct{} // Refresh blocks on this until closed, if set
}

func (f *fakeFeed) Configured() bool { return f.configured }

func (f *fakeFeed) Refresh(ctx context.Context, window time.Duration) ([]spot.Spot, feed.Stats, bool) {
	f.mu.Lock()
	f.calls++
	entered := f.entered
	release := f.release
	spots := make([]spot.Spot, len(f.spots))
	copy(spots, f.spots)
	st := f.stats
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return spots, st, true
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeControl struct {
	mu       sync.Mutex
	stats    []feed.Stats
	filters  []FilterState
	detached int
}

func (c *fakeControl) ShowStats(st feed.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = append(c.stats, st)
}

func (c *fakeControl) ShowFilter(fs FilterState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, fs)
}

func (c *fakeControl) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached++
}

func quietLogger() *log.Logger {
	return log.New(discard{}, "", 0)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testSpots() []spot.Spot {
	now := time.Now().UTC()
	return []spot.Spot{
		{Reporter: "W3LPL", Grid: "FM19", FreqHz: 14074, SNR: 25, HasSNR: true, Time: now},
		{Reporter: "K9LA", Grid: "EN70", FreqHz: 7030, SNR: 5, HasSNR: true, Time: now},
		{Reporter: "G4ABC", Grid: "IO91", FreqHz: 7040, Time: now},
		{Reporter: "BADGRID", Grid: "??", FreqHz: 14040, SNR: 30, HasSNR: true, Time: now},
	}
}

func newTestManager(f *fakeFeed, s *fakeSurface, c Control, tr *stats.Tracker) *Manager {
	return NewManager(Options{
		Feed:     f,
		Surface:  s,
		Control:  c,
		Tracker:  tr,
		Logger:   quietLogger(),
		Interval: time.Hour, // keep the recurring tick out of the way
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEnableDrawsMarkersAndSkipsBadLocators(t *testing.T) {
	f := &fakeFeed{configured: true, spots: testSpots(), stats: feed.Stats{TotalSpots: 4, UniqueReporters: 4, AverageSNR: 20}}
	s := newFakeSurface()
	tr := stats.NewTracker()
	m := newTestManager(f, s, nil, tr)

	m.Enable()
	waitFor(t, "first redraw", func() bool { return s.count() == 3 })

	if got := tr.GetSnapshot().UnresolvedSpots; got != 1 {
		t.Fatalf("expected 1 unresolvable spot counted, got %d", got)
	}
	m.Disable()
	if s.count() != 0 {
		t.Fatalf("disable must destroy all primitives, %d left", s.count())
	}
}

func TestEnableWithoutCallsignIsNoop(t *testing.T) {
	f := &fakeFeed{configured: false}
	s := newFakeSurface()
	m := newTestManager(f, s, nil, nil)

	m.Enable()
	time.Sleep(20 * time.Millisecond)
	if m.Enabled() {
		t.Fatalf("unconfigured enable must stay disabled")
	}
	if f.callCount() != 0 {
		t.Fatalf("unconfigured enable must not poll")
	}
}

func TestDisableWhilePendingRefreshDiscardsLateResult(t *testing.T) {
	f := &fakeFeed{
		configured: true,
		spots:      testSpots(),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	s := newFakeSurface()
	tr := stats.NewTracker()
	m := newTestManager(f, s, nil, tr)

	m.Enable()
	<-f.entered // retrieval in flight
	m.Disable()
	close(f.release) // let the retrieval resolve after teardown

	waitFor(t, "late discard", func() bool { return tr.GetSnapshot().LateDiscards == 1 })
	if s.count() != 0 {
		t.Fatalf("late refresh must not resurrect primitives, %d drawn", s.count())
	}
	if s.adds != 0 {
		t.Fatalf("no primitive should ever have been added, got %d", s.adds)
	}
}

func TestRedrawIsDeterministicUnderUnchangedInput(t *testing.T) {
	f := &fakeFeed{configured: true, spots: testSpots()}
	s := newFakeSurface()
	m := newTestManager(f, s, nil, nil)

	m.Enable()
	waitFor(t, "first redraw", func() bool { return s.count() > 0 })
	first := s.count()

	// Enable on an enabled overlay is a pure redraw pass.
	m.Enable()
	if s.count() != first {
		t.Fatalf("redraw with unchanged input drew %d, want %d", s.count(), first)
	}
	m.Enable()
	if s.count() != first {
		t.Fatalf("second redraw drifted to %d, want %d", s.count(), first)
	}
	if f.callCount() != 1 {
		t.Fatalf("re-enable must not duplicate the schedule, %d polls", f.callCount())
	}
}

func TestBandAndSNRFiltering(t *testing.T) {
	f := &fakeFeed{configured: true, spots: testSpots()}
	s := newFakeSurface()
	m := newTestManager(f, s, nil, nil)

	m.Enable()
	waitFor(t, "first redraw", func() bool { return s.count() == 3 })

	m.SetBand("40m")
	// K9LA (7030) and G4ABC (7040) are 40m; BADGRID never resolves.
	if s.count() != 2 {
		t.Fatalf("band filter drew %d, want 2", s.count())
	}

	m.SetMinSNR(10)
	// K9LA (5 dB) drops; G4ABC has no SNR and passes the floor.
	if s.count() != 1 {
		t.Fatalf("SNR floor drew %d, want 1", s.count())
	}

	m.SetBand(spot.BandAll)
	// W3LPL (25 dB) and BADGRID pass the floor; BADGRID does not resolve.
	if s.count() != 2 {
		t.Fatalf("All-band bypass drew %d, want 2", s.count())
	}
	m.Disable()
}

func TestShowPathsAddsPathPrimitives(t *testing.T) {
	f := &fakeFeed{configured: true, spots: testSpots()}
	s := newFakeSurface()
	m := newTestManager(f, s, nil, nil)

	m.Enable()
	waitFor(t, "first redraw", func() bool { return s.count() == 3 })

	m.SetShowPaths(true)
	if s.count() != 6 {
		t.Fatalf("paths enabled should double primitives, got %d", s.count())
	}
	s.mu.Lock()
	paths := 0
	for _, p := range s.drawn {
		if p.Kind == PathLine {
			if len(p.Path) < 2 {
				s.mu.Unlock()
				t.Fatalf("path primitive with %d vertices", len(p.Path))
			}
			if p.Path[0] != DefaultHome {
				s.mu.Unlock()
				t.Fatalf("path must originate at the home coordinate, got %v", p.Path[0])
			}
			paths++
		}
	}
	s.mu.Unlock()
	if paths != 3 {
		t.Fatalf("expected 3 path primitives, got %d", paths)
	}
}

func TestDisableIsIdempotentAndDetachesControlOnce(t *testing.T) {
	f := &fakeFeed{configured: true, spots: testSpots()}
	s := newFakeSurface()
	c := &fakeControl{}
	m := newTestManager(f, s, c, nil)

	m.Enable()
	waitFor(t, "first redraw", func() bool { return s.count() > 0 })

	m.Disable()
	m.Disable()
	c.mu.Lock()
	detached := c.detached
	c.mu.Unlock()
	if detached != 1 {
		t.Fatalf("disable must detach exactly once, got %d", detached)
	}
	if m.Enabled() {
		t.Fatalf("manager should report disabled")
	}
}

func TestControlReceivesStatsAndFilterUpdates(t *testing.T) {
	st := feed.Stats{TotalSpots: 4, UniqueReporters: 4, AverageSNR: 20}
	f := &fakeFeed{configured: true, spots: testSpots(), stats: st}
	s := newFakeSurface()
	c := &fakeControl{}
	m := newTestManager(f, s, c, nil)

	m.Enable()
	waitFor(t, "stats pushed", func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.stats) > 0
	})
	c.mu.Lock()
	got := c.stats[0]
	c.mu.Unlock()
	if got != st {
		t.Fatalf("control received %+v, want %+v", got, st)
	}

	m.SetWindowMinutes(30)
	c.mu.Lock()
	last := c.filters[len(c.filters)-1]
	c.mu.Unlock()
	if last.WindowMinutes != 30 {
		t.Fatalf("filter update not pushed to control: %+v", last)
	}
}

func TestArenaGenerationsIsolateHandles(t *testing.T) {
	a := newArena()
	g1 := a.begin()
	a.track(g1, 1)
	a.track(g1, 2)
	if a.size() != 2 {
		t.Fatalf("expected 2 tracked handles, got %d", a.size())
	}
	g2 := a.begin()
	if g2 <= g1 {
		t.Fatalf("generations must increase monotonically")
	}
	a.track(g2, 3)
	drained := a.drain()
	if len(drained) != 3 || a.size() != 0 {
		t.Fatalf("drain should empty the arena, got %d drained %d left", len(drained), a.size())
	}
}
