package geo

import (
	"fmt"
	"math"
)

// Hemisphere is the N/S/E/W letter that carries the sign of a coordinate.
type Hemisphere byte

// Hemisphere letters.
const (
	North Hemisphere = 'N'
	South Hemisphere = 'S'
	East  Hemisphere = 'E'
	West  Hemisphere = 'W'
)

// Positive reports whether the hemisphere stands for a non-negative value.
func (h Hemisphere) Positive() bool {
	return h == North || h == East
}

func (h Hemisphere) String() string {
	return string(rune(h))
}

// MarshalText renders the letter, so JSON and YAML carry "N" rather than 78.
func (h Hemisphere) MarshalText() ([]byte, error) {
	return []byte{byte(h)}, nil
}

// UnmarshalText accepts a single N, S, E or W letter in any case.
func (h *Hemisphere) UnmarshalText(text []byte) error {
	if len(text) == 1 {
		if v, ok := hemisphereLetter(text[0]); ok {
			*h = v
			return nil
		}
	}
	return fmt.Errorf("unknown hemisphere %q", text)
}

// HemisphereOf picks the hemisphere letter for a signed coordinate.
func HemisphereOf(value float64, isLatitude bool) Hemisphere {
	if isLatitude {
		if value >= 0 {
			return North
		}
		return South
	}
	if value >= 0 {
		return East
	}
	return West
}

// DMS is a coordinate split into whole degrees, whole minutes and seconds.
type DMS struct {
	Degrees    int        `json:"degrees" yaml:"degrees"`
	Minutes    int        `json:"minutes" yaml:"minutes"`
	Seconds    float64    `json:"seconds" yaml:"seconds"`
	Hemisphere Hemisphere `json:"hemisphere" yaml:"hemisphere"`
}

// DM is a coordinate split into whole degrees and decimal minutes.
// Seconds is always zero.
type DM struct {
	Degrees    int        `json:"degrees" yaml:"degrees"`
	Minutes    float64    `json:"minutes" yaml:"minutes"`
	Seconds    float64    `json:"seconds" yaml:"seconds"`
	Hemisphere Hemisphere `json:"hemisphere" yaml:"hemisphere"`
}

// DD is a coordinate as unsigned decimal degrees.
// Minutes and Seconds are always zero.
type DD struct {
	Degrees    float64    `json:"degrees" yaml:"degrees"`
	Minutes    float64    `json:"minutes" yaml:"minutes"`
	Seconds    float64    `json:"seconds" yaml:"seconds"`
	Hemisphere Hemisphere `json:"hemisphere" yaml:"hemisphere"`
}

// ToDMS splits a signed decimal coordinate into degrees, minutes and seconds.
func ToDMS(value float64, isLatitude bool) DMS {
	abs := math.Abs(value)
	deg := math.Floor(abs)
	minutes := (abs - deg) * 60
	whole := math.Floor(minutes)

	return DMS{
		Degrees:    int(deg),
		Minutes:    int(whole),
		Seconds:    (minutes - whole) * 60,
		Hemisphere: HemisphereOf(value, isLatitude),
	}
}

// ToDM splits a signed decimal coordinate into degrees and decimal minutes.
func ToDM(value float64, isLatitude bool) DM {
	abs := math.Abs(value)
	deg := math.Floor(abs)

	return DM{
		Degrees:    int(deg),
		Minutes:    (abs - deg) * 60,
		Hemisphere: HemisphereOf(value, isLatitude),
	}
}

// ToD returns the unsigned decimal degrees of a coordinate with its hemisphere.
func ToD(value float64, isLatitude bool) DD {
	return DD{
		Degrees:    math.Abs(value),
		Hemisphere: HemisphereOf(value, isLatitude),
	}
}

// FromDMS joins degrees, minutes and seconds into signed decimal degrees.
func FromDMS(degrees, minutes int, seconds float64, positive bool) float64 {
	return FromDMSFloat(float64(degrees), float64(minutes), seconds, positive)
}

// FromDMSFloat is FromDMS for fractional degrees and minutes.
func FromDMSFloat(degrees, minutes, seconds float64, positive bool) float64 {
	v := degrees + minutes/60 + seconds/3600
	if !positive {
		return -v
	}
	return v
}

// Decimal converts back to signed decimal degrees.
func (d DMS) Decimal() float64 {
	return FromDMS(d.Degrees, d.Minutes, d.Seconds, d.Hemisphere.Positive())
}

// Decimal converts back to signed decimal degrees.
func (d DM) Decimal() float64 {
	return FromDMSFloat(float64(d.Degrees), d.Minutes, d.Seconds, d.Hemisphere.Positive())
}

// Decimal converts back to signed decimal degrees.
func (d DD) Decimal() float64 {
	return FromDMSFloat(d.Degrees, d.Minutes, d.Seconds, d.Hemisphere.Positive())
}

func (d DMS) String() string {
	deg, minutes := d.Degrees, d.Minutes
	sec := math.Round(d.Seconds*10) / 10
	if sec >= 60 {
		sec -= 60
		minutes++
	}
	if minutes >= 60 {
		minutes -= 60
		deg++
	}

	return fmt.Sprintf("%d°%02d'%04.1f\"%s", deg, minutes, sec, d.Hemisphere)
}

func (d DM) String() string {
	deg := d.Degrees
	minutes := math.Round(d.Minutes*1000) / 1000
	if minutes >= 60 {
		minutes -= 60
		deg++
	}

	return fmt.Sprintf("%d°%06.3f'%s", deg, minutes, d.Hemisphere)
}

func (d DD) String() string {
	return fmt.Sprintf("%.5f°%s", d.Degrees, d.Hemisphere)
}
