// Package web exposes the overlay to map clients over HTTP. It implements
// the drawing-surface contract with an in-memory primitive table and serves
// the current state as GeoJSON, so any slippy-map frontend can render the
// overlay by polling one endpoint.
package web

import (
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"propmap/feed"
	"propmap/grid"
	"propmap/overlay"
	"propmap/stats"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatsProvider supplies the current feed aggregates and engine counters for
// the stats endpoint.
type StatsProvider func() (feed.Stats, stats.Snapshot)

// Surface is an overlay.Surface holding the currently drawn primitives.
// Handles are assigned monotonically; removal of an unknown handle is a
// no-op, as the contract requires.
type Surface struct {
	mu       sync.Mutex
	next     overlay.Handle
	drawn    map[overlay.Handle]overlay.Primitive
	provider StatsProvider
}

// SetStatsProvider wires the source consulted by the stats endpoint. Without
// one the endpoint serves zeroes.
func (s *Surface) SetStatsProvider(p StatsProvider) {
	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{drawn: make(map[overlay.Handle]overlay.Primitive)}
}

// AddPrimitive registers a primitive and returns its handle.
func (s *Surface) AddPrimitive(p overlay.Primitive) overlay.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.drawn[s.next] = p
	return s.next
}

// RemovePrimitive drops a primitive. Unknown handles are ignored.
func (s *Surface) RemovePrimitive(h overlay.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drawn, h)
}

// Count returns the number of currently drawn primitives.
func (s *Surface) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drawn)
}

// Feature collection types follow the GeoJSON spec; coordinates are
// [lon, lat] order.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// Snapshot renders the current primitive set as a GeoJSON feature collection.
func (s *Surface) Snapshot() featureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(s.drawn))}
	for _, p := range s.drawn {
		switch p.Kind {
		case overlay.Marker:
			props := map[string]any{
				"kind":   "marker",
				"label":  p.Label,
				"color":  p.Color,
				"radius": p.Radius,
			}
			if locator, ok := grid.FromLatLon(p.At.Lat, p.At.Lon); ok {
				props["grid"] = locator
			}
			fc.Features = append(fc.Features, feature{
				Type: "Feature",
				Geometry: geometry{
					Type:        "Point",
					Coordinates: []float64{p.At.Lon, p.At.Lat},
				},
				Properties: props,
			})
		case overlay.PathLine:
			coords := make([][]float64, 0, len(p.Path))
			for _, v := range p.Path {
				coords = append(coords, []float64{v.Lon, v.Lat})
			}
			fc.Features = append(fc.Features, feature{
				Type: "Feature",
				Geometry: geometry{
					Type:        "LineString",
					Coordinates: coords,
				},
				Properties: map[string]any{
					"kind":  "path",
					"label": p.Label,
					"color": p.Color,
				},
			})
		}
	}
	return fc
}

type feedStatsDocument struct {
	TotalSpots      int     `json:"total_spots"`
	UniqueReporters int     `json:"unique_reporters"`
	AverageSNR      float64 `json:"average_snr"`
}

type engineStatsDocument struct {
	UptimeSeconds     int64  `json:"uptime_seconds"`
	Refreshes         uint64 `json:"refreshes"`
	RefreshFailures   uint64 `json:"refresh_failures"`
	SkippedUnconfig   uint64 `json:"skipped_unconfigured"`
	LateDiscards      uint64 `json:"late_discards"`
	UnresolvedSpots   uint64 `json:"unresolved_spots"`
	PrimitivesDrawn   uint64 `json:"primitives_drawn"`
	PrimitivesDropped uint64 `json:"primitives_destroyed"`
	LastRefresh       string `json:"last_refresh,omitempty"`
}

type statsDocument struct {
	Feed              feedStatsDocument   `json:"feed"`
	Engine            engineStatsDocument `json:"engine"`
	PrimitivesCurrent int                 `json:"primitives_current"`
}

// StatsSnapshot assembles the stats document from the configured provider.
func (s *Surface) StatsSnapshot() statsDocument {
	s.mu.Lock()
	provider := s.provider
	current := len(s.drawn)
	s.mu.Unlock()

	doc := statsDocument{PrimitivesCurrent: current}
	if provider == nil {
		return doc
	}
	fs, snap := provider()
	doc.Feed = feedStatsDocument{
		TotalSpots:      fs.TotalSpots,
		UniqueReporters: fs.UniqueReporters,
		AverageSNR:      fs.AverageSNR,
	}
	doc.Engine = engineStatsDocument{
		UptimeSeconds:     int64(snap.Uptime / time.Second),
		Refreshes:         snap.Refreshes,
		RefreshFailures:   snap.RefreshFailures,
		SkippedUnconfig:   snap.SkippedUnconfig,
		LateDiscards:      snap.LateDiscards,
		UnresolvedSpots:   snap.UnresolvedSpots,
		PrimitivesDrawn:   snap.PrimitivesDrawn,
		PrimitivesDropped: snap.PrimitivesDropped,
	}
	if !snap.LastRefresh.IsZero() {
		doc.Engine.LastRefresh = snap.LastRefresh.UTC().Format(time.RFC3339)
	}
	return doc
}

// Handler serves the overlay snapshot at GET /overlay.geojson and the health
// counters at GET /stats.json.
func (s *Surface) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/overlay.geojson", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		body, err := json.Marshal(s.Snapshot())
		if err != nil {
			http.Error(w, "encode snapshot", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/stats.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body, err := json.Marshal(s.StatsSnapshot())
		if err != nil {
			http.Error(w, "encode stats", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	})
	return mux
}
