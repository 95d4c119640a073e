// Package node keeps the latest known state of mesh nodes and derives
// distance, bearing and link quality relative to the local radio.
package node

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/meshgeo/internal/geo"
)

// User is the identity a node announces.
type User struct {
	ID        string `json:"id" yaml:"id"`
	LongName  string `json:"longName" yaml:"long_name"`
	ShortName string `json:"shortName" yaml:"short_name"`
}

// Position is the last position a node reported, in 1e-7 degree units.
type Position struct {
	LatitudeI  int32 `json:"latitudeI" yaml:"latitude_i"`
	LongitudeI int32 `json:"longitudeI" yaml:"longitude_i"`
	Altitude   int32 `json:"altitude,omitempty" yaml:"altitude,omitempty"`
	Time       int64 `json:"time,omitempty" yaml:"time,omitempty"`

	// decimal degrees, as some dumps and hand-written configs carry them
	Latitude  float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Node is the latest known state of one mesh node.
type Node struct {
	User      User     `json:"user" yaml:"user"`
	Position  Position `json:"position" yaml:"position"`
	SNR       float64  `json:"snr" yaml:"snr"`
	RSSI      int      `json:"rssi" yaml:"rssi"`
	LastHeard int64    `json:"lastHeard" yaml:"last_heard"`
	Num       uint32   `json:"num" yaml:"num"`
}

// Point returns the node position in decimal degrees.
func (n Node) Point() geo.Point {
	return geo.PointFromFixed(n.Position.LatitudeI, n.Position.LongitudeI)
}

// normalize fills the fixed-point position from decimal degrees when only
// the latter is present.
func (n *Node) normalize() {
	p := &n.Position
	if p.LatitudeI != 0 || p.LongitudeI != 0 {
		return
	}
	if p.Latitude != 0 || p.Longitude != 0 {
		p.LatitudeI = geo.DegI(p.Latitude)
		p.LongitudeI = geo.DegI(p.Longitude)
	}
}

// HasPosition reports whether the node has a usable fix.
func (n Node) HasPosition() bool {
	return n.Point().Valid()
}

// DisplayName prefers the long name, then the short name, then the node id.
func (n Node) DisplayName() string {
	switch {
	case n.User.LongName != "":
		return n.User.LongName
	case n.User.ShortName != "":
		return n.User.ShortName
	default:
		return IDFromNum(n.Num)
	}
}

// IDFromNum renders a node number as its "!xxxxxxxx" id.
func IDFromNum(num uint32) string {
	return fmt.Sprintf("!%08x", num)
}

// NumFromID parses a "!xxxxxxxx" id, with or without the "!", back to its number.
func NumFromID(id string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(id), "!")
	if hex == "" || len(hex) > 8 {
		return 0, fmt.Errorf("invalid node id %q", id)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q: %w", id, err)
	}

	return uint32(v), nil
}
