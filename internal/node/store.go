package node

import (
	"math"
	"sort"
	"sync"

	"github.com/woozymasta/meshgeo/internal/geo"
	"github.com/woozymasta/meshgeo/internal/signal"

	"github.com/rs/zerolog/log"
)

// EventKind tells subscribers what happened to a node.
type EventKind int

// Event kinds.
const (
	Updated EventKind = iota
	Removed
)

func (k EventKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "updated"
}

// Event is delivered to subscribers after every change.
type Event struct {
	Node Node
	Kind EventKind
}

// Neighbor is a node seen from the local radio.
type Neighbor struct {
	Distance     *float64       `json:"distance,omitempty"`
	Bearing      *float64       `json:"bearing,omitempty"`
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Compass      string         `json:"compass,omitempty"`
	DistanceText string         `json:"distance_text,omitempty"`
	Position     string         `json:"position,omitempty"`
	Signal       string         `json:"signal"`
	Node         Node           `json:"node"`
	Quality      signal.Quality `json:"quality"`
}

// Store holds the latest state of every known node. It is safe for
// concurrent use and is meant to be created once and passed to consumers.
type Store struct {
	nodes       map[uint32]Node
	subscribers map[int]chan Event
	units       geo.Units
	format      geo.CoordinateFormat
	mu          sync.RWMutex
	nextSub     int
	ourNum      uint32
	legacyPi    bool
}

// Option configures a Store.
type Option func(*Store)

// WithUnits sets the unit system for formatted distances.
func WithUnits(u geo.Units) Option {
	return func(s *Store) { s.units = u }
}

// WithCoordinateFormat sets how neighbor positions are rendered.
func WithCoordinateFormat(f geo.CoordinateFormat) Option {
	return func(s *Store) { s.format = f }
}

// WithLegacyPi computes distances with geo.DistanceLegacy.
func WithLegacyPi(enabled bool) Option {
	return func(s *Store) { s.legacyPi = enabled }
}

// NewStore creates an empty store for the radio numbered ourNum.
func NewStore(ourNum uint32, opts ...Option) *Store {
	s := &Store{
		nodes:       make(map[uint32]Node),
		subscribers: make(map[int]chan Event),
		units:       geo.Metric,
		format:      geo.FormatDEC,
		ourNum:      ourNum,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OurNum returns the number of the local radio.
func (s *Store) OurNum() uint32 {
	return s.ourNum
}

// Upsert stores n, replacing any previous state for the same number.
func (s *Store) Upsert(n Node) {
	if n.User.ID == "" {
		n.User.ID = IDFromNum(n.Num)
	}
	n.normalize()

	s.mu.Lock()
	s.nodes[n.Num] = n
	s.publish(Event{Kind: Updated, Node: n})
	s.mu.Unlock()
}

// Remove deletes a node. It reports whether the node was present.
func (s *Store) Remove(num uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[num]
	if !ok {
		return false
	}
	delete(s.nodes, num)
	s.publish(Event{Kind: Removed, Node: n})

	return true
}

// Get returns the node with the given number.
func (s *Store) Get(num uint32) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[num]
	return n, ok
}

// Len returns the number of known nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

// List returns every node sorted by number.
func (s *Store) List() []Node {
	list, _, _ := s.snapshot()
	return list
}

// snapshot copies every node, sorted by number, together with the local
// node under a single read lock.
func (s *Store) snapshot() ([]Node, Node, bool) {
	s.mu.RLock()
	list := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		list = append(list, n)
	}
	us, ok := s.nodes[s.ourNum]
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Num < list[j].Num })
	return list, us, ok
}

// Subscribe registers for change events. Sends never block: when the buffer
// is full the event is dropped for that subscriber. The returned function
// unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// publish must be called with mu held for writing.
func (s *Store) publish(ev Event) {
	for id, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			log.Trace().
				Int("subscriber", id).
				Str("node", ev.Node.User.ID).
				Str("kind", ev.Kind.String()).
				Msg("Subscriber buffer full, event dropped")
		}
	}
}

// Neighbors returns every node except the local one, closest first.
// Nodes without a distance follow, ordered by number.
func (s *Store) Neighbors() []Neighbor {
	nodes, us, haveUs := s.snapshot()
	ourPos := us.Point()
	canMeasure := haveUs && us.HasPosition()

	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		if n.Num == s.ourNum {
			continue
		}

		nb := Neighbor{
			ID:      n.User.ID,
			Name:    n.DisplayName(),
			Signal:  signal.Format(n.SNR, n.RSSI),
			Quality: signal.Determine(n.SNR, n.RSSI),
			Node:    n,
		}

		if n.HasPosition() {
			p := n.Point()
			nb.Position = geo.FormatPoint(p, s.format)

			if canMeasure {
				d := s.distance(ourPos, p)
				b := geo.Bearing(ourPos, p)
				nb.Distance = &d
				nb.Bearing = &b
				nb.Compass = geo.Compass(b)
				nb.DistanceText = geo.FormatDistance(d, s.units)
			}
		}

		out = append(out, nb)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return distanceKey(out[i]) < distanceKey(out[j])
	})

	return out
}

// FeatureCollection exports every positioned node as GeoJSON points.
func (s *Store) FeatureCollection() geo.FeatureCollection {
	neighbors := s.Neighbors()

	fc := geo.NewFeatureCollection(len(neighbors) + 1)
	if us, ok := s.Get(s.ourNum); ok && us.HasPosition() {
		fc.Features = append(fc.Features, geo.NewPointFeature(us.Point(), map[string]interface{}{
			"id":         us.User.ID,
			"name":       us.DisplayName(),
			"short_name": us.User.ShortName,
			"local":      true,
		}))
	}

	for _, nb := range neighbors {
		if !nb.Node.HasPosition() {
			continue
		}

		props := map[string]interface{}{
			"id":         nb.ID,
			"name":       nb.Name,
			"short_name": nb.Node.User.ShortName,
			"quality":    nb.Quality.String(),
		}
		if nb.Distance != nil {
			props["distance"] = *nb.Distance
			props["bearing"] = *nb.Bearing
		}

		fc.Features = append(fc.Features, geo.NewPointFeature(nb.Node.Point(), props))
	}

	return fc
}

func (s *Store) distance(a, b geo.Point) float64 {
	if s.legacyPi {
		return geo.DistanceLegacy(a, b)
	}
	return geo.Distance(a, b)
}

func distanceKey(nb Neighbor) float64 {
	if nb.Distance == nil {
		return math.Inf(1)
	}
	return *nb.Distance
}
