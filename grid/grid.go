// Package grid converts Maidenhead locators to geographic coordinates and
// back. Resolution always yields the center of the addressed square so that
// markers land mid-cell rather than on the south-west corner.
package grid

import (
	"math"
	"strings"

	"propmap/geo"
)

const (
	fieldLonSize    = 20.0
	fieldLatSize    = 10.0
	squareLonSize   = 2.0
	squareLatSize   = 1.0
	subLonSize      = squareLonSize / 24.0
	subLatSize      = squareLatSize / 24.0
	subCenterLon    = subLonSize / 2.0
	subCenterLat    = subLatSize / 2.0
	squareCenterLon = squareLonSize / 2.0
	squareCenterLat = squareLatSize / 2.0
)

// Resolve returns the center coordinate for a 4- or 6-character Maidenhead
// locator. It returns ok=false for anything shorter than 4 characters or with
// characters outside the valid field/square/subsquare ranges.
func Resolve(locator string) (geo.LatLon, bool) {
	g := strings.ToUpper(strings.TrimSpace(locator))
	if len(g) < 4 || len(g) == 5 {
		return geo.LatLon{}, false
	}
	a, b := g[0], g[1]
	if a < 'A' || a > 'R' || b < 'A' || b > 'R' {
		return geo.LatLon{}, false
	}
	d0, d1 := g[2], g[3]
	if d0 < '0' || d0 > '9' || d1 < '0' || d1 > '9' {
		return geo.LatLon{}, false
	}
	lon := -180.0 + float64(a-'A')*fieldLonSize + float64(d0-'0')*squareLonSize
	lat := -90.0 + float64(b-'A')*fieldLatSize + float64(d1-'0')*squareLatSize
	if len(g) >= 6 {
		s0, s1 := g[4], g[5]
		if s0 < 'A' || s0 > 'X' || s1 < 'A' || s1 > 'X' {
			return geo.LatLon{}, false
		}
		lon += float64(s0-'A')*subLonSize + subCenterLon
		lat += float64(s1-'A')*subLatSize + subCenterLat
		return geo.LatLon{Lat: lat, Lon: lon}, true
	}
	lon += squareCenterLon
	lat += squareCenterLat
	return geo.LatLon{Lat: lat, Lon: lon}, true
}

// FromLatLon returns the 4-character locator containing the coordinate.
// It returns ok=false when the coordinate is out of range or non-finite.
func FromLatLon(lat, lon float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return "", false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", false
	}
	if lat == 90 {
		lat = 89.999999
	}
	if lon == 180 {
		lon = 179.999999
	}
	adjLon := lon + 180
	adjLat := lat + 90
	fieldLon := int(adjLon / fieldLonSize)
	fieldLat := int(adjLat / fieldLatSize)
	if fieldLon < 0 || fieldLon >= 18 || fieldLat < 0 || fieldLat >= 18 {
		return "", false
	}
	squareLon := int((adjLon - float64(fieldLon)*fieldLonSize) / squareLonSize)
	squareLat := int((adjLat - float64(fieldLat)*fieldLatSize) / squareLatSize)
	if squareLon < 0 || squareLon >= 10 || squareLat < 0 || squareLat >= 10 {
		return "", false
	}
	return string([]byte{
		byte('A' + fieldLon),
		byte('A' + fieldLat),
		byte('0' + squareLon),
		byte('0' + squareLat),
	}), true
}
