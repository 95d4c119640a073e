package geo

import "math"

// MaxMercatorLat is the latitude limit of the Web Mercator square.
const MaxMercatorLat = 85.05112878

// Tile addresses one slippy-map tile.
type Tile struct {
	Z, X, Y int
}

// LonLatToTile returns the tile containing lon/lat at zoom z.
// Latitude is clamped to the Mercator limit and indices to the grid.
func LonLatToTile(lon, lat float64, z int) Tile {
	lat = math.Max(math.Min(lat, MaxMercatorLat), -MaxMercatorLat)
	n := float64(int(1) << z)

	x := int(math.Floor((lon + 180.0) / 360.0 * n))

	latRad := toRadians(lat)
	mercatorY := math.Log(math.Tan(latRad) + 1/math.Cos(latRad))
	y := int(math.Floor((1.0 - mercatorY/math.Pi) / 2.0 * n))

	return Tile{Z: z, X: clampIndex(x, z), Y: clampIndex(y, z)}
}

// TileToLonLat returns the north-west corner of a tile.
func TileToLonLat(x, y, z int) (lon, lat float64) {
	n := float64(int(1) << z)
	lon = float64(x)/n*360.0 - 180.0

	// Inverse Mercator projection
	mercatorY := math.Pi * (1 - 2*float64(y)/n)
	lat = toDegrees(math.Atan(math.Sinh(mercatorY)))

	return lon, lat
}

// TileBounds returns the lat/lon box covered by a tile.
func TileBounds(t Tile) Bounds {
	west, north := TileToLonLat(t.X, t.Y, t.Z)
	east, south := TileToLonLat(t.X+1, t.Y+1, t.Z)

	return Bounds{MinLat: south, MinLon: west, MaxLat: north, MaxLon: east}
}

// TileCount returns how many tiles TilesInBounds would list, without
// building the list.
func TileCount(b Bounds, z int) int {
	nw := LonLatToTile(b.MinLon, b.MaxLat, z)
	se := LonLatToTile(b.MaxLon, b.MinLat, z)

	return (se.X - nw.X + 1) * (se.Y - nw.Y + 1)
}

// TilesInBounds lists every tile at zoom z intersecting b, row by row.
func TilesInBounds(b Bounds, z int) []Tile {
	nw := LonLatToTile(b.MinLon, b.MaxLat, z)
	se := LonLatToTile(b.MaxLon, b.MinLat, z)

	tiles := make([]Tile, 0, TileCount(b, z))
	for y := nw.Y; y <= se.Y; y++ {
		for x := nw.X; x <= se.X; x++ {
			tiles = append(tiles, Tile{Z: z, X: x, Y: y})
		}
	}

	return tiles
}

func clampIndex(i, z int) int {
	maxIndex := (1 << z) - 1
	if i < 0 {
		return 0
	}
	if i > maxIndex {
		return maxIndex
	}
	return i
}
