package geo

import (
	"math"
	"testing"
)

func TestPathIdenticalPointsDegeneratesToSegment(t *testing.T) {
	p := LatLon{Lat: 42.5, Lon: -71.0}
	got := Path(p, p, 30)
	if len(got) != 2 {
		t.Fatalf("expected 2-point segment for identical endpoints, got %d points", len(got))
	}
	if got[0] != p || got[1] != p {
		t.Fatalf("segment should repeat the input point, got %v", got)
	}
}

func TestPathNonFiniteInputDegeneratesToSegment(t *testing.T) {
	a := LatLon{Lat: math.NaN(), Lon: 10}
	b := LatLon{Lat: 20, Lon: 30}
	got := Path(a, b, 30)
	if len(got) != 2 {
		t.Fatalf("expected 2-point segment for NaN input, got %d points", len(got))
	}
}

func TestPathShortDistanceDegeneratesToSegment(t *testing.T) {
	a := LatLon{Lat: 46.0, Lon: 14.0}
	b := LatLon{Lat: 46.3, Lon: 14.4}
	got := Path(a, b, 30)
	if len(got) != 2 {
		t.Fatalf("expected 2-point segment below threshold, got %d points", len(got))
	}
}

func TestPathPoleAliasedEndpointsDegenerateToSegment(t *testing.T) {
	// Every longitude names the same point at the pole, so angular
	// separation is zero even though the coordinate delta is large.
	a := LatLon{Lat: 90, Lon: 0}
	b := LatLon{Lat: 90, Lon: 100}
	got := Path(a, b, 30)
	if len(got) != 2 {
		t.Fatalf("expected 2-point segment for zero separation, got %d points", len(got))
	}
}

func TestAngleBetween(t *testing.T) {
	x := Vec3{X: 1}
	y := Vec3{Y: 1}
	if got := angleBetween(x, y); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Fatalf("orthogonal vectors should separate by pi/2, got %v", got)
	}
	if got := angleBetween(x, x); got != 0 {
		t.Fatalf("identical vectors should separate by 0, got %v", got)
	}
}

func TestPathEndpointsExactAndCountCorrect(t *testing.T) {
	a := LatLon{Lat: 40.0, Lon: -74.0}
	b := LatLon{Lat: 50.0, Lon: -74.0}
	got := Path(a, b, 30)
	if len(got) != 31 {
		t.Fatalf("expected 31 points, got %d", len(got))
	}
	if got[0] != a {
		t.Fatalf("first point must equal a exactly, got %v", got[0])
	}
	if got[30] != b {
		t.Fatalf("last point must equal b exactly, got %v", got[30])
	}
}

func TestPathInterpolantsLieBetweenEndpoints(t *testing.T) {
	a := LatLon{Lat: 0, Lon: 0}
	b := LatLon{Lat: 45, Lon: 0}
	got := Path(a, b, 10)
	for i := 1; i < len(got)-1; i++ {
		if got[i].Lat <= got[i-1].Lat {
			t.Fatalf("latitudes should increase monotonically along a meridian, point %d: %v then %v", i, got[i-1], got[i])
		}
		if math.Abs(got[i].Lon) > 1e-9 {
			t.Fatalf("meridian path should keep longitude 0, point %d has lon %v", i, got[i].Lon)
		}
	}
}

func TestPathDefaultResolution(t *testing.T) {
	a := LatLon{Lat: 10, Lon: 10}
	b := LatLon{Lat: 30, Lon: 40}
	got := Path(a, b, 0)
	if len(got) != DefaultPathPoints+1 {
		t.Fatalf("expected default resolution %d+1 points, got %d", DefaultPathPoints, len(got))
	}
}
