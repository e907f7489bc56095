package geo

import "math"

const (
	radDeg = 180 / math.Pi
	degRad = math.Pi / 180
)

// LatLon is a geographic coordinate in degrees. Latitude is positive north,
// longitude positive east.
type LatLon struct {
	Lat float64
	Lon float64
}

// IsFinite reports whether both components are finite numbers.
func (p LatLon) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// Vec3 is a unit-sphere position used for spherical interpolation.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Mul(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Mul(1 / n)
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func latLonToVec(p LatLon) Vec3 {
	lat := p.Lat * degRad
	lon := p.Lon * degRad
	clat := math.Cos(lat)
	return Vec3{
		X: clat * math.Cos(lon),
		Y: clat * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

func vecToLatLon(v Vec3) LatLon {
	return LatLon{
		Lat: math.Atan2(v.Z, math.Sqrt(v.X*v.X+v.Y*v.Y)) * radDeg,
		Lon: math.Atan2(v.Y, v.X) * radDeg,
	}
}

func angleBetween(a, b Vec3) float64 {
	dot := clamp(a.Dot(b), -1, 1)
	return math.Acos(dot)
}

func slerp(a, b Vec3, t float64) Vec3 {
	dot := clamp(a.Dot(b), -1, 1)
	omega := math.Acos(dot)
	if omega == 0 {
		return a
	}
	sinOmega := math.Sin(omega)
	if sinOmega == 0 {
		return a
	}
	factor1 := math.Sin((1-t)*omega) / sinOmega
	factor2 := math.Sin(t*omega) / sinOmega
	return a.Mul(factor1).Add(b.Mul(factor2))
}
