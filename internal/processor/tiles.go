package processor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/woozymasta/meshgeo/internal/config"
	"github.com/woozymasta/meshgeo/internal/geo"
	"github.com/woozymasta/meshgeo/internal/metrics"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TilesDir is the subdirectory of the cache holding region tiles.
const TilesDir = "tiles"

// outcome is what happened to a single tile.
type outcome int

const (
	downloaded outcome = iota
	cached
	missing
	failed
)

func (o outcome) String() string {
	switch o {
	case downloaded:
		return "downloaded"
	case cached:
		return "cached"
	case missing:
		return "missing"
	default:
		return "failed"
	}
}

type job struct {
	URLTemplate string
	BaseDir     string
	Coord       geo.Tile
	TileSize    int
}

// RegionStats summarises one ProcessRegion run.
type RegionStats struct {
	Region     string `json:"region"`
	Total      int    `json:"total"`
	Downloaded int    `json:"downloaded"`
	Cached     int    `json:"cached"`
	Missing    int    `json:"missing"`
	Failed     int    `json:"failed"`
}

func (s *RegionStats) add(o outcome) {
	switch o {
	case downloaded:
		s.Downloaded++
	case cached:
		s.Cached++
	case missing:
		s.Missing++
	default:
		s.Failed++
	}
}

// RegionDir is where tiles of a region are stored.
func RegionDir(cacheDir, region string) string {
	return filepath.Join(cacheDir, TilesDir, region)
}

// TilePath is the WebP file of one tile inside a region directory.
func TilePath(baseDir string, c geo.Tile) string {
	return filepath.Join(
		baseDir,
		strconv.Itoa(c.Z),
		strconv.Itoa(c.X),
		strconv.Itoa(c.Y)+".webp",
	)
}

// PlanRegion lists the tiles covering a region for every zoom level.
func PlanRegion(r config.Region) []geo.Tile {
	bounds := r.Bounds()

	var tiles []geo.Tile
	for z := r.ZoomMin; z <= r.ZoomMax; z++ {
		tiles = append(tiles, geo.TilesInBounds(bounds, z)...)
	}
	return tiles
}

// ProcessRegion downloads every tile of a region, converting them to WebP
// under the cache directory.
func ProcessRegion(client *http.Client, cacheDir string, r config.Region, concurrency int, force bool) RegionStats {
	tiles := PlanRegion(r)
	stats := RegionStats{Region: r.Name, Total: len(tiles)}

	log.Info().
		Str("region", r.Name).
		Int("tiles", len(tiles)).
		Int("zoom_min", r.ZoomMin).
		Int("zoom_max", r.ZoomMax).
		Msg("Starting tile download")

	if concurrency <= 0 {
		concurrency = 1
	}

	baseDir := RegionDir(cacheDir, r.Name)
	jobs := make(chan job, len(tiles))
	results := make(chan outcome, len(tiles))

	go func() {
		for _, t := range tiles {
			jobs <- job{Coord: t, URLTemplate: r.URL, BaseDir: baseDir, TileSize: r.TileSize}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := downloadAndConvert(client, j, force)
				if err != nil {
					log.Trace().
						Err(err).
						Str("url", buildURL(j.URLTemplate, j.Coord)).
						Msg("Failed to download tile")
				}
				metrics.TilesProcessed.WithLabelValues(r.Name, res.String()).Inc()
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	for res := range results {
		stats.add(res)
	}

	log.Info().
		Str("region", r.Name).
		Int("downloaded", stats.Downloaded).
		Int("cached", stats.Cached).
		Int("missing", stats.Missing).
		Int("failed", stats.Failed).
		Msg("Region finished")

	return stats
}

func downloadAndConvert(client *http.Client, j job, force bool) (outcome, error) {
	outPath := TilePath(j.BaseDir, j.Coord)

	// Check existence if not forcing overwrite
	if !force && tileComplete(outPath) {
		return cached, nil
	}

	url := buildURL(j.URLTemplate, j.Coord)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return failed, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return failed, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return missing, nil
	}
	if resp.StatusCode != http.StatusOK {
		return failed, fmt.Errorf("status code %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return failed, err
	}
	img, _, err := image.Decode(bytes.NewReader(bodyBytes))
	if err != nil {
		log.Trace().Err(err).Str("url", url).Msg("Failed to decode image")
		return missing, nil // Not an image or corrupted
	}

	// Filter out empty/1px tiles often returned by map servers for OOB areas
	if img.Bounds().Dx() <= 1 {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return missing, nil
	}

	img = fitTile(img, j.TileSize)

	if err := writeTile(outPath, img); err != nil {
		return failed, err
	}

	return downloaded, nil
}

// writeTile encodes img into a temp file beside path and renames it into
// place, so an interrupted write never leaves a partial tile under its name.
func writeTile(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".tile-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := webp.Encode(f, img, &webp.Options{Lossless: false, Quality: 80}); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

// tileComplete reports whether path holds a whole WebP file. The RIFF header
// records the payload size, which exposes truncated files.
func tileComplete(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return false
	}

	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return false
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WEBP" {
		return false
	}

	return info.Size() >= int64(binary.LittleEndian.Uint32(hdr[4:8]))+8
}

// fitTile rescales img to size x size when the server returned another size,
// e.g. 512px retina tiles for a 256px cache.
func fitTile(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func buildURL(tpl string, c geo.Tile) string {
	s := strings.ReplaceAll(tpl, "{z}", strconv.Itoa(c.Z))
	s = strings.ReplaceAll(s, "{x}", strconv.Itoa(c.X))
	s = strings.ReplaceAll(s, "{y}", strconv.Itoa(c.Y))

	if strings.Contains(s, "{tms_y}") {
		maxCoord := (1 << c.Z) - 1
		tmsY := maxCoord - c.Y
		s = strings.ReplaceAll(s, "{tms_y}", strconv.Itoa(tmsY))
	}

	return s
}
