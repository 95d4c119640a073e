package geo

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		units  Units
		want   string
	}{
		{0, Metric, "0 m"},
		{850.4, Metric, "850 m"},
		{1234, Metric, "1.2 km"},
		{21294.4, Metric, "21.3 km"},
		{100, Imperial, "328 ft"},
		{1609.33, Imperial, "5280 ft"},
		{5000, Imperial, "3.1 mi"},
		{1234, "", "1.2 km"},
	}

	for _, tt := range tests {
		if got := FormatDistance(tt.meters, tt.units); got != tt.want {
			t.Errorf("FormatDistance(%v, %q) = %q, want %q", tt.meters, tt.units, got, tt.want)
		}
	}
}

func TestFormatPoint(t *testing.T) {
	sf := Point{Lat: 37.7749, Lon: -122.4194}

	tests := []struct {
		format CoordinateFormat
		want   string
	}{
		{FormatDEC, "37.77490 -122.41940"},
		{FormatDM, "37°46.494'N 122°25.164'W"},
		{FormatDMS, `37°46'29.6"N 122°25'09.8"W`},
		{"", "37.77490 -122.41940"},
	}

	for _, tt := range tests {
		if got := FormatPoint(sf, tt.format); got != tt.want {
			t.Errorf("FormatPoint(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestCompass(t *testing.T) {
	tests := map[float64]string{
		0:     "N",
		22.4:  "N",
		22.5:  "NE",
		90:    "E",
		135:   "SE",
		200:   "S",
		225:   "SW",
		250:   "W",
		270:   "W",
		300:   "NW",
		359.9: "N",
		-90:   "W",
		450:   "E",
	}

	for bearing, want := range tests {
		if got := Compass(bearing); got != want {
			t.Errorf("Compass(%v) = %q, want %q", bearing, got, want)
		}
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in    string
		isLat bool
		want  float64
	}{
		{"37.7749", true, 37.7749},
		{"-122.4194", false, -122.4194},
		{"+12.5", true, 12.5},
		{"37.5S", true, -37.5},
		{"37.5 s", true, -37.5},
		{`37°46'29.64"N`, true, FromDMS(37, 46, 29.64, true)},
		{"37 46 29.64 N", true, FromDMS(37, 46, 29.64, true)},
		{"N 37:46.494", true, FromDMSFloat(37, 46.494, 0, true)},
		{"122°25′9.84″W", false, FromDMS(122, 25, 9.84, false)},
		{"-122 25 9.84", false, FromDMS(122, 25, 9.84, false)},
		{"  90  ", true, 90},
		{"180 E", false, 180},
	}

	for _, tt := range tests {
		got, err := ParseCoordinate(tt.in, tt.isLat)
		if err != nil {
			t.Errorf("ParseCoordinate(%q) error: %v", tt.in, err)
			continue
		}
		if !almostEqual(got, tt.want, 1e-12) {
			t.Errorf("ParseCoordinate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCoordinate_Errors(t *testing.T) {
	tests := []struct {
		in    string
		isLat bool
	}{
		{"", true},
		{"   ", false},
		{"abc", true},
		{"37.5E", true},
		{"122W", true},
		{"10N", false},
		{"-37.5S", true},
		{"91", true},
		{"-180.5", false},
		{"37 61", true},
		{"37 30 60", true},
		{"37.5 30", true},
		{"1 2 3 4", true},
		{"37 -30", true},
		{"inf", true},
		{"NaN", false},
	}

	for _, tt := range tests {
		_, err := ParseCoordinate(tt.in, tt.isLat)
		if err == nil {
			t.Errorf("ParseCoordinate(%q, %v) expected error", tt.in, tt.isLat)
			continue
		}
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("ParseCoordinate(%q) error %v does not wrap ErrInvalidCoordinate", tt.in, err)
		}
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("32.776665, -96.796989")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != dallas {
		t.Fatalf("got %+v, want %+v", p, dallas)
	}

	if _, err := ParsePoint("32.776665"); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("missing comma: %v", err)
	}
	if _, err := ParsePoint("32.7,west"); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("bad longitude: %v", err)
	}
}

func TestUnitsAndFormat_UnmarshalYAML(t *testing.T) {
	var cfg struct {
		Units  Units            `yaml:"units"`
		Format CoordinateFormat `yaml:"format"`
	}

	if err := yaml.Unmarshal([]byte("units: Imperial\nformat: DMS\n"), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Units != Imperial || cfg.Format != FormatDMS {
		t.Fatalf("got %+v", cfg)
	}

	if err := yaml.Unmarshal([]byte("units: furlongs\n"), &cfg); err == nil {
		t.Fatal("expected error for unknown units")
	}
	if err := yaml.Unmarshal([]byte("format: utm\n"), &cfg); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
