package domain

import "math"

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" yaml:"lng" mapstructure:"lng"`
}

// Bounds is a lat/lng rectangle, closed on the south/west edges and open on
// the north/east edges.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Contains reports whether p lies inside b.
func (b Bounds) Contains(p Point) bool {
	return b.South <= p.Lat && p.Lat < b.North && b.West <= p.Lng && p.Lng < b.East
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{Lat: (b.North + b.South) / 2, Lng: (b.East + b.West) / 2}
}

// HaversineKM returns the great-circle distance between a and b in kilometers.
func HaversineKM(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
