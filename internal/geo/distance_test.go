package geo

import (
	"math"
	"testing"
)

var (
	dallas     = Point{Lat: 32.776665, Lon: -96.796989}
	richardson = Point{Lat: 32.960758, Lon: -96.733521}
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDistance_SamePointIsZero(t *testing.T) {
	points := []Point{
		{},
		dallas,
		richardson,
		{Lat: 89.9999, Lon: 179.9999},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 51.5074, Lon: -0.1278},
	}

	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
		if d := DistanceLegacy(p, p); d != 0 {
			t.Errorf("DistanceLegacy(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{dallas, richardson},
		{{Lat: 0, Lon: 0}, {Lat: 10, Lon: 10}},
		{{Lat: -33.8688, Lon: 151.2093}, {Lat: 51.5074, Lon: -0.1278}},
		{{Lat: 45, Lon: 179.5}, {Lat: 45, Lon: -179.5}},
	}

	for _, p := range pairs {
		ab := Distance(p[0], p[1])
		ba := Distance(p[1], p[0])
		if !almostEqual(ab, ba, 1e-6) {
			t.Errorf("Distance not symmetric for %v: %v vs %v", p, ab, ba)
		}
	}
}

func TestDistance_OneDegreeOfLatitude(t *testing.T) {
	got := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	want := EarthRadius * math.Pi / 180

	if !almostEqual(got, want, 1e-3) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDistance_Antipodal(t *testing.T) {
	got := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180})
	want := math.Pi * EarthRadius

	if !almostEqual(got, want, 1) {
		t.Fatalf("got %v, want about half the circumference %v", got, want)
	}
}

// The law of cosines gives ~21.29 km between the two city centres.
func TestDistance_DallasToRichardson(t *testing.T) {
	d := Distance(dallas, richardson)
	if d < 21000 || d > 21600 {
		t.Fatalf("distance %v outside [21000, 21600]", d)
	}

	b := Bearing(dallas, richardson)
	if !(b < 45 || b > 315) {
		t.Fatalf("bearing %v is not northward", b)
	}
	if !almostEqual(b, 16.13, 0.05) {
		t.Errorf("bearing %v, want ~16.13", b)
	}
	if c := Compass(b); c != "N" {
		t.Errorf("compass %q, want N", c)
	}
}

// DistanceLegacy keeps the 3.14169 constant; results drift by the ratio of
// the two constants.
func TestDistanceLegacy_UsesLegacyPi(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 1, Lon: 0}

	got := DistanceLegacy(a, b)
	want := EarthRadius * LegacyPi / 180
	if !almostEqual(got, want, 1e-3) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got <= Distance(a, b) {
		t.Fatalf("legacy distance %v should exceed %v", got, Distance(a, b))
	}

	d := DistanceLegacy(dallas, richardson)
	if !almostEqual(d, 21295.07, 0.05) {
		t.Errorf("legacy Dallas-Richardson = %v, want ~21295.07", d)
	}
}

func TestBearing_Cardinal(t *testing.T) {
	origin := Point{}
	tests := []struct {
		name string
		to   Point
		want float64
	}{
		{"north", Point{Lat: 1}, 0},
		{"east", Point{Lon: 1}, 90},
		{"south", Point{Lat: -1}, 180},
		{"west", Point{Lon: -1}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bearing(origin, tt.to); !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBearing_SamePointIsZero(t *testing.T) {
	for _, p := range []Point{{}, dallas, {Lat: -45, Lon: 170}} {
		if b := Bearing(p, p); b != 0 {
			t.Errorf("Bearing(%v, %v) = %v, want 0", p, p, b)
		}
	}
}

func TestBearing_AlwaysInRange(t *testing.T) {
	for lat1 := -80.0; lat1 <= 80; lat1 += 40 {
		for lon1 := -170.0; lon1 <= 170; lon1 += 85 {
			for lat2 := -85.0; lat2 <= 85; lat2 += 17 {
				for lon2 := -180.0; lon2 <= 180; lon2 += 30 {
					b := Bearing(Point{lat1, lon1}, Point{lat2, lon2})
					if b < 0 || b >= 360 || math.IsNaN(b) {
						t.Fatalf("Bearing(%v,%v -> %v,%v) = %v out of [0,360)", lat1, lon1, lat2, lon2, b)
					}
				}
			}
		}
	}
}

func TestRadiansToBearing(t *testing.T) {
	tests := []struct {
		rad  float64
		want float64
	}{
		{0, 0},
		{math.Pi / 2, 90},
		{-math.Pi / 2, 270},
		{math.Pi, 180},
		{-math.Pi, 180},
		{3 * math.Pi, 180},
		{-4 * math.Pi, 0},
	}

	for _, tt := range tests {
		got := RadiansToBearing(tt.rad)
		if !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("RadiansToBearing(%v) = %v, want %v", tt.rad, got, tt.want)
		}
		if got < 0 || got >= 360 {
			t.Errorf("RadiansToBearing(%v) = %v out of range", tt.rad, got)
		}
	}
}

func TestRadiansToBearing_NoOpOnNormalized(t *testing.T) {
	for _, deg := range []float64{0, 0.25, 45.5, 90, 180, 270, 359.75} {
		got := RadiansToBearing(BearingToRadians(deg))
		if !almostEqual(got, deg, 1e-9) {
			t.Errorf("round trip of %v gave %v", deg, got)
		}
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{}, false},
		{dallas, true},
		{Point{Lat: 91, Lon: 0.1}, false},
		{Point{Lat: 10, Lon: -181}, false},
		{Point{Lat: math.NaN(), Lon: 1}, false},
		{Point{Lat: 0, Lon: 0.0001}, true},
	}

	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestFixedPoint(t *testing.T) {
	p := PointFromFixed(327766650, -967969890)
	if !almostEqual(p.Lat, dallas.Lat, 1e-9) || !almostEqual(p.Lon, dallas.Lon, 1e-9) {
		t.Fatalf("PointFromFixed = %v, want %v", p, dallas)
	}

	if got := DegI(DegD(-967969890)); got < -967969891 || got > -967969889 {
		t.Errorf("DegI(DegD(x)) = %d", got)
	}
}
