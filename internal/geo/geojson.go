// Package geo handles geographic data structures, distance and bearing math,
// sexagesimal conversions and coordinate formatting.
package geo

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type" yaml:"type"`
	Features []Feature `json:"features" yaml:"features"`
}

// Feature represents a single geographic feature with geometry and properties.
type Feature struct {
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
	Type       string                 `json:"type" yaml:"type"`
	Geometry   Geometry               `json:"geometry" yaml:"geometry"`
}

// Geometry represents the geometry of a feature (Point, Polygon, etc.).
type Geometry struct {
	Type        string    `json:"type" yaml:"type"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates"` // [Lon, Lat]
}

// NewFeatureCollection returns an empty collection ready for appending.
func NewFeatureCollection(capacity int) FeatureCollection {
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, capacity),
	}
}

// NewPointFeature wraps a point into a GeoJSON Point feature.
func NewPointFeature(p Point, props map[string]interface{}) Feature {
	if props == nil {
		props = map[string]interface{}{}
	}

	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{p.Lon, p.Lat},
		},
		Properties: props,
	}
}

// Within returns the Point features lying inside b.
func (fc FeatureCollection) Within(b Bounds) FeatureCollection {
	out := NewFeatureCollection(len(fc.Features))
	for _, f := range fc.Features {
		c := f.Geometry.Coordinates
		if f.Geometry.Type != "Point" || len(c) < 2 {
			continue
		}
		if b.Contains(Point{Lat: c[1], Lon: c[0]}) {
			out.Features = append(out.Features, f)
		}
	}
	return out
}
