package geo

import "math"

const (
	// EarthRadius is the sphere radius, in meters, used by Distance.
	EarthRadius = 6366000.0

	// LegacyPi is the π approximation older releases used for distances.
	// DistanceLegacy keeps it for bit-compatible output.
	LegacyPi = 3.14169
)

// Distance returns the great-circle distance in meters between a and b,
// computed with the spherical law of cosines.
//
// Out-of-range input is not rejected; the trigonometry decides the result.
func Distance(a, b Point) float64 {
	return lawOfCosines(a, b, 180/math.Pi)
}

// DistanceLegacy is Distance with degrees converted through LegacyPi.
func DistanceLegacy(a, b Point) float64 {
	return lawOfCosines(a, b, 180/LegacyPi)
}

func lawOfCosines(a, b Point, degPerRad float64) float64 {
	if a == b {
		return 0
	}

	aLat := a.Lat / degPerRad
	aLon := a.Lon / degPerRad
	bLat := b.Lat / degPerRad
	bLon := b.Lon / degPerRad

	t1 := math.Cos(aLat) * math.Cos(aLon) * math.Cos(bLat) * math.Cos(bLon)
	t2 := math.Cos(aLat) * math.Sin(aLon) * math.Cos(bLat) * math.Sin(bLon)
	t3 := math.Sin(aLat) * math.Sin(bLat)

	// acos is NaN when rounding pushes nearly identical points past 1.0
	angle := math.Acos(t1 + t2 + t3)
	if math.IsNaN(angle) {
		angle = 0
	}

	return EarthRadius * angle
}

// Bearing returns the initial great-circle bearing from one point to another
// in degrees, [0, 360), clockwise from true north. Equal points give 0.
func Bearing(from, to Point) float64 {
	fromLat := toRadians(from.Lat)
	toLat := toRadians(to.Lat)
	dLon := toRadians(to.Lon - from.Lon)

	y := math.Sin(dLon) * math.Cos(toLat)
	x := math.Cos(fromLat)*math.Sin(toLat) - math.Sin(fromLat)*math.Cos(toLat)*math.Cos(dLon)

	return RadiansToBearing(math.Atan2(y, x))
}

// RadiansToBearing converts an angle in radians to a compass bearing in [0, 360).
func RadiansToBearing(rad float64) float64 {
	b := math.Mod(toDegrees(rad)+360, 360)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}

	return b
}

// BearingToRadians converts a bearing in degrees to radians.
func BearingToRadians(deg float64) float64 {
	return toRadians(deg)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
