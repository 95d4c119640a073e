package geo

import "math"

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether the point is inside the lat/lon ranges and is not
// the (0,0) placeholder radios report without a GPS fix.
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lon == 0 {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}

	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// fixedScale is the resolution of integer positions sent by mesh radios.
const fixedScale = 1e-7

// DegD converts a fixed-point 1e-7 degree value to decimal degrees.
func DegD(i int32) float64 {
	return float64(i) * fixedScale
}

// DegI converts decimal degrees to the fixed-point 1e-7 representation.
// Fractions beyond the 7th decimal are truncated.
func DegI(d float64) int32 {
	return int32(d * 1e7)
}

// PointFromFixed builds a point from fixed-point latitude and longitude.
func PointFromFixed(latI, lonI int32) Point {
	return Point{Lat: DegD(latI), Lon: DegD(lonI)}
}
