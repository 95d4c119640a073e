package geo

import "math"

// Meters per degree used by the planar helpers.
const (
	metersPerDegreeLon = 111320.0
	metersPerDegreeLat = 110540.0
)

// DestinationPoint moves origin by distance meters along bearingRad (radians,
// clockwise from north) using a flat-earth approximation. Good enough for
// short hops around a node on the map, not for navigation.
//
// origin.Lat goes into math.Cos unconverted, in degrees, and the output must
// stay identical to earlier releases. Use Destination for a correct result.
func DestinationPoint(origin Point, distance, bearingRad float64) Point {
	dx := distance * math.Sin(bearingRad)
	dy := distance * math.Cos(bearingRad)

	dLon := dx / (metersPerDegreeLon * math.Cos(origin.Lat))
	dLat := dy / metersPerDegreeLat

	return Point{Lat: origin.Lat + dLat, Lon: origin.Lon + dLon}
}

// Destination follows the great circle from origin for distance meters on the
// initial bearing (degrees) and returns the end point, longitude wrapped to
// [-180, 180).
func Destination(origin Point, distance, bearingDeg float64) Point {
	delta := distance / EarthRadius
	theta := toRadians(bearingDeg)
	phi1 := toRadians(origin.Lat)
	lambda1 := toRadians(origin.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	lon := math.Mod(toDegrees(lambda2)+540, 360) - 180

	return Point{Lat: toDegrees(phi2), Lon: lon}
}

// Bounds is an axis-aligned lat/lon box.
type Bounds struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// BoundingBox returns a box around center that reaches radius meters in each
// cardinal direction. Latitude is clamped to [-90, 90] and longitude to
// [-180, 180].
func BoundingBox(center Point, radius float64) Bounds {
	latDelta := radius / metersPerDegreeLat
	lonDelta := 180.0
	if c := math.Cos(toRadians(center.Lat)); c > 1e-9 {
		lonDelta = radius / (metersPerDegreeLon * c)
	}

	return Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MinLon: math.Max(center.Lon-lonDelta, -180),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MaxLon: math.Min(center.Lon+lonDelta, 180),
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Intersects reports whether the two boxes share any area or edge.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat && b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}
