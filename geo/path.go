// Package geo provides the spherical geometry used by the overlay: coordinate
// values, unit-vector interpolation, and great-circle polyline generation.
package geo

import "math"

// DefaultPathPoints is the number of interpolation segments used when the
// caller does not ask for a specific resolution.
const DefaultPathPoints = 30

// shortPathThresholdDeg marks the span below which slerp becomes numerically
// unstable; such pairs are rendered as a straight two-point segment.
const shortPathThresholdDeg = 0.5

// Path returns an ordered polyline approximating the great-circle arc from a
// to b with points+1 vertices. The first vertex is exactly a and the last is
// exactly b. Non-finite inputs and near-coincident pairs degrade to the
// two-point segment [a, b].
func Path(a, b LatLon, points int) []LatLon {
	if points <= 0 {
		points = DefaultPathPoints
	}
	if !a.IsFinite() || !b.IsFinite() {
		return []LatLon{a, b}
	}
	if math.Abs(b.Lat-a.Lat) < shortPathThresholdDeg && math.Abs(b.Lon-a.Lon) < shortPathThresholdDeg {
		return []LatLon{a, b}
	}

	va := latLonToVec(a)
	vb := latLonToVec(b)
	if angleBetween(va, vb) == 0 {
		return []LatLon{a, b}
	}
	out := make([]LatLon, 0, points+1)
	for i := 0; i <= points; i++ {
		switch i {
		case 0:
			out = append(out, a)
		case points:
			out = append(out, b)
		default:
			f := float64(i) / float64(points)
			out = append(out, vecToLatLon(slerp(va, vb, f).Normalize()))
		}
	}
	return out
}
