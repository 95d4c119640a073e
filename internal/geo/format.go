package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidCoordinate is returned when user input cannot be read as a coordinate.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Units selects the measurement system for displayed distances.
type Units string

// Supported unit systems.
const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

// UnmarshalText accepts "metric" or "imperial" in any case.
func (u *Units) UnmarshalText(text []byte) error {
	switch v := Units(strings.ToLower(string(text))); v {
	case Metric, Imperial:
		*u = v
		return nil
	default:
		return fmt.Errorf("unknown units %q", text)
	}
}

// CoordinateFormat selects how coordinates are rendered for display.
type CoordinateFormat string

// Supported coordinate formats.
const (
	FormatDEC CoordinateFormat = "dec"
	FormatDM  CoordinateFormat = "dm"
	FormatDMS CoordinateFormat = "dms"
)

// UnmarshalText accepts "dec", "dm" or "dms" in any case.
func (f *CoordinateFormat) UnmarshalText(text []byte) error {
	switch v := CoordinateFormat(strings.ToLower(string(text))); v {
	case FormatDEC, FormatDM, FormatDMS:
		*f = v
		return nil
	default:
		return fmt.Errorf("unknown coordinate format %q", text)
	}
}

const (
	metersPerMile = 1609.34
	feetPerMeter  = 3.281
)

// FormatDistance renders meters for display in the given unit system.
func FormatDistance(meters float64, units Units) string {
	if units == Imperial {
		if meters < metersPerMile {
			return fmt.Sprintf("%.0f ft", meters*feetPerMeter)
		}
		return fmt.Sprintf("%.1f mi", meters/metersPerMile)
	}

	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatPoint renders latitude and longitude in the chosen format,
// separated by a space.
func FormatPoint(p Point, format CoordinateFormat) string {
	switch format {
	case FormatDMS:
		return ToDMS(p.Lat, true).String() + " " + ToDMS(p.Lon, false).String()
	case FormatDM:
		return ToDM(p.Lat, true).String() + " " + ToDM(p.Lon, false).String()
	default:
		return fmt.Sprintf("%.5f %.5f", p.Lat, p.Lon)
	}
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Compass converts a bearing to an 8-point compass direction.
func Compass(bearing float64) string {
	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	return compassPoints[int((b+22.5)/45.0)%8]
}

// ParsePoint reads "lat,lon" where each half is anything ParseCoordinate accepts.
func ParsePoint(s string) (Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("%w: %q: expected \"lat,lon\"", ErrInvalidCoordinate, s)
	}

	lat, err := ParseCoordinate(latStr, true)
	if err != nil {
		return Point{}, err
	}
	lon, err := ParseCoordinate(lonStr, false)
	if err != nil {
		return Point{}, err
	}

	return Point{Lat: lat, Lon: lon}, nil
}

// ParseCoordinate reads a user-typed coordinate into signed decimal degrees.
//
// Accepted forms include "-37.5", "37.5S", "37°46'29.64\"N", "37 46 29.64 N"
// and "N 37:46.494". A hemisphere letter must match the axis and cannot be
// combined with a minus sign.
func ParseCoordinate(s string, isLatitude bool) (float64, error) {
	fail := func(reason string) (float64, error) {
		return 0, fmt.Errorf("%w: %q: %s", ErrInvalidCoordinate, s, reason)
	}

	text := strings.TrimSpace(s)
	if text == "" {
		return fail("empty")
	}

	var hemi Hemisphere
	if letter, rest, ok := cutHemisphere(text); ok {
		hemi, text = letter, rest
		if isLatitude != (hemi == North || hemi == South) {
			return fail("hemisphere does not match axis")
		}
	}

	positive := true
	switch {
	case strings.HasPrefix(text, "-"):
		positive = false
		text = text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}
	if hemi != 0 {
		if !positive {
			return fail("both sign and hemisphere given")
		}
		positive = hemi.Positive()
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("°'\"′″:", r)
	})
	if len(fields) == 0 || len(fields) > 3 {
		return fail("expected 1 to 3 numeric parts")
	}

	parts := [3]float64{}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return fail(fmt.Sprintf("bad number %q", f))
		}
		// only the last part may carry a fraction
		if i < len(fields)-1 && v != math.Trunc(v) {
			return fail("only the last part may be fractional")
		}
		if i > 0 && v >= 60 {
			return fail("minutes and seconds must be below 60")
		}
		parts[i] = v
	}

	value := FromDMSFloat(parts[0], parts[1], parts[2], positive)

	limit := 180.0
	if isLatitude {
		limit = 90
	}
	if math.Abs(value) > limit {
		return fail(fmt.Sprintf("out of range ±%g", limit))
	}

	return value, nil
}

// cutHemisphere strips a leading or trailing N/S/E/W letter.
func cutHemisphere(s string) (Hemisphere, string, bool) {
	if s == "" {
		return 0, s, false
	}

	if h, ok := hemisphereLetter(s[len(s)-1]); ok {
		return h, strings.TrimSpace(s[:len(s)-1]), true
	}
	if h, ok := hemisphereLetter(s[0]); ok {
		return h, strings.TrimSpace(s[1:]), true
	}

	return 0, s, false
}

func hemisphereLetter(c byte) (Hemisphere, bool) {
	switch Hemisphere(unicode.ToUpper(rune(c))) {
	case North:
		return North, true
	case South:
		return South, true
	case East:
		return East, true
	case West:
		return West, true
	}
	return 0, false
}
