package overlay

import (
	"propmap/feed"
	"propmap/geo"
)

// Kind discriminates drawable primitives.
type Kind int

const (
	// Marker is a styled dot at a resolved reporter position.
	Marker Kind = iota
	// PathLine is a great-circle polyline from the home coordinate to a
	// reporter position.
	PathLine
)

// Handle identifies a primitive on a drawing surface.
type Handle uint64

// Primitive is one drawable overlay element. Instances are created during a
// redraw pass and destroyed at the start of the next pass or on disable;
// they never survive a disable/enable cycle.
type Primitive struct {
	Kind   Kind
	At     geo.LatLon   // marker position (Kind == Marker)
	Path   []geo.LatLon // polyline vertices (Kind == PathLine)
	Color  string
	Radius float64
	Label  string
}

// Surface abstracts the drawing collaborator. RemovePrimitive with a handle
// the surface no longer recognizes must be a no-op, never an error: the
// surface may have been torn down concurrently.
type Surface interface {
	AddPrimitive(p Primitive) Handle
	RemovePrimitive(h Handle)
}

// Control abstracts the widget that renders stats and filter state.
type Control interface {
	ShowStats(st feed.Stats)
	ShowFilter(fs FilterState)
	Detach()
}

// FilterState holds the four user-controlled filter values. It persists
// across polls and changes only through the typed Manager setters.
type FilterState struct {
	Band          string // band tag, or spot.BandAll to bypass
	WindowMinutes int
	MinSNR        float64
	ShowPaths     bool
}
