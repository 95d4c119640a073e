// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/woozymasta/meshgeo/internal/geo"
	"github.com/woozymasta/meshgeo/internal/node"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults applied by Load.
const (
	DefaultCacheDir  = "maps"
	DefaultZoomLimit = 12
	DefaultTileSize  = 256
	MaxZoom          = 19
	MaxRegionTiles   = 1_000_000
)

// Config represents the root configuration file structure.
type Config struct {
	Units            geo.Units            `yaml:"units,omitempty" json:"units"`
	CoordinateFormat geo.CoordinateFormat `yaml:"coordinate_format,omitempty" json:"coordinate_format"`

	// local radio, "!a1b2c3d4" or a decimal node number
	OurNode string `yaml:"our_node" json:"our_node"`

	CacheDir string `yaml:"cache_dir,omitempty" json:"-"`

	// URL or local path of a JSON node dump
	NodesSource string `yaml:"nodes,omitempty" json:"-"`

	// defining nodes directly in config.yaml
	NodesInline []node.Node `yaml:"nodes_inline,omitempty" json:"-"`

	Regions   []Region `yaml:"regions,omitempty" json:"regions"`
	ZoomLimit int      `yaml:"zoom,omitempty" json:"zoom"`
	LegacyPi  bool     `yaml:"legacy_pi,omitempty" json:"legacy_pi"`
}

// Region is an area around a point whose map tiles are cached offline.
type Region struct {
	Name     string    `yaml:"name" json:"name"`
	URL      string    `yaml:"url" json:"-"` // {z} {x} {y} {tms_y} template
	Center   geo.Point `yaml:"center" json:"center"`
	Radius   float64   `yaml:"radius" json:"radius"` // meters
	ZoomMin  int       `yaml:"zoom_min,omitempty" json:"zoom_min"`
	ZoomMax  int       `yaml:"zoom_max,omitempty" json:"zoom_max"`
	TileSize int       `yaml:"tile_size,omitempty" json:"tile_size"`
}

// Bounds returns the lat/lon box covered by the region.
func (r Region) Bounds() geo.Bounds {
	return geo.BoundingBox(r.Center, r.Radius)
}

// TileCount returns how many tiles the region spans over its zoom range.
// Counting stops once MaxRegionTiles is exceeded.
func (r Region) TileCount() int {
	bounds := r.Bounds()

	total := 0
	for z := r.ZoomMin; z <= r.ZoomMax && total <= MaxRegionTiles; z++ {
		total += geo.TileCount(bounds, z)
	}
	return total
}

// Load reads and parses the YAML configuration file from the specified path,
// fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML configuration, fills in defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Units == "" {
		c.Units = geo.Metric
	}
	if c.CoordinateFormat == "" {
		c.CoordinateFormat = geo.FormatDEC
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.ZoomLimit <= 0 {
		c.ZoomLimit = DefaultZoomLimit
	}

	for i := range c.Regions {
		r := &c.Regions[i]
		if r.ZoomMax <= 0 {
			r.ZoomMax = c.ZoomLimit
		}
		if r.TileSize <= 0 {
			r.TileSize = DefaultTileSize
		}
	}
}

// OurNum resolves OurNode to a node number. An empty value yields 0.
func (c *Config) OurNum() (uint32, error) {
	v := strings.TrimSpace(c.OurNode)
	if v == "" {
		return 0, nil
	}
	if strings.HasPrefix(v, "!") {
		return node.NumFromID(v)
	}

	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid our_node %q: %w", c.OurNode, err)
	}
	return uint32(n), nil
}

// Validate checks that configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if _, err := c.OurNum(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.ZoomLimit > MaxZoom {
		errs = append(errs, fmt.Sprintf("zoom must be at most %d, got %d", MaxZoom, c.ZoomLimit))
	}

	for i, n := range c.NodesInline {
		if n.Num == 0 {
			errs = append(errs, fmt.Sprintf("nodes_inline[%d]: num is required", i))
		}
	}

	seen := make(map[string]bool, len(c.Regions))
	for i, r := range c.Regions {
		prefix := fmt.Sprintf("regions[%d]", i)
		if r.Name != "" {
			prefix = fmt.Sprintf("regions[%d] %q", i, r.Name)
		}

		switch {
		case r.Name == "":
			errs = append(errs, prefix+": name is required")
		case seen[r.Name]:
			errs = append(errs, prefix+": duplicate name")
		case strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == "..":
			errs = append(errs, prefix+": name must be a plain directory name")
		}
		seen[r.Name] = true

		if !strings.Contains(r.URL, "{z}") || !strings.Contains(r.URL, "{x}") ||
			!(strings.Contains(r.URL, "{y}") || strings.Contains(r.URL, "{tms_y}")) {
			errs = append(errs, prefix+": url must contain {z}, {x} and {y} or {tms_y}")
		}
		if !r.Center.Valid() {
			errs = append(errs, prefix+": center is not a valid position")
		}
		if r.Radius <= 0 {
			errs = append(errs, prefix+": radius must be positive")
		}
		zoomOK := r.ZoomMin >= 0 && r.ZoomMin <= r.ZoomMax && r.ZoomMax <= MaxZoom
		if !zoomOK {
			errs = append(errs, fmt.Sprintf("%s: zoom range %d..%d must lie within 0..%d", prefix, r.ZoomMin, r.ZoomMax, MaxZoom))
		}
		if zoomOK && r.Center.Valid() && r.Radius > 0 {
			if n := r.TileCount(); n > MaxRegionTiles {
				errs = append(errs, fmt.Sprintf("%s: covers %d tiles, limit is %d; reduce radius or zoom_max", prefix, n, MaxRegionTiles))
			}
		}
		if r.TileSize < 64 || r.TileSize > 1024 {
			errs = append(errs, fmt.Sprintf("%s: tile_size must be 64..1024, got %d", prefix, r.TileSize))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}
