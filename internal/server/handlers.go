// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/meshgeo/internal/geo"
	"github.com/woozymasta/meshgeo/internal/metrics"
	"github.com/woozymasta/meshgeo/internal/processor"
)

const etagCap = 64

// Routes registers every handler and wraps the mux with request logging.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/nodes", s.HandleNodes)
	mux.HandleFunc("GET /api/nodes.geojson", s.HandleNodesGeoJSON)
	mux.HandleFunc("GET /api/regions", s.HandleRegions)
	mux.HandleFunc("GET /api/distance", s.HandleDistance)
	mux.HandleFunc("GET /api/dms", s.HandleDMS)
	mux.HandleFunc("GET /api/parse", s.HandleParse)
	mux.HandleFunc("GET /api/project", s.HandleProject)
	mux.HandleFunc("GET /tiles/{region}/{z}/{x}/{y}", s.HandleTile)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /{$}", s.HandleIndex)

	return RequestLogger(mux)
}

// HandleNodes serves every known neighbor with distance, bearing and signal.
func (s *ServerContext) HandleNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", s.Store.Neighbors())
}

// HandleNodesGeoJSON serves node positions as a GeoJSON FeatureCollection,
// optionally limited to ?bbox=minLon,minLat,maxLon,maxLat.
func (s *ServerContext) HandleNodesGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := s.Store.FeatureCollection()

	if v := r.URL.Query().Get("bbox"); v != "" {
		b, err := parseBBox(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fc = fc.Within(b)
	}

	writeJSON(w, http.StatusOK, "application/geo+json", fc)
}

// HandleRegions serves the configured offline tile regions.
func (s *ServerContext) HandleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "application/json", s.RegionList())
}

type distanceResponse struct {
	From         geo.Point `json:"from"`
	To           geo.Point `json:"to"`
	Distance     float64   `json:"distance"`
	DistanceText string    `json:"distance_text"`
	Bearing      float64   `json:"bearing"`
	Compass      string    `json:"compass"`
}

// HandleDistance serves distance and bearing between ?from=lat,lon and ?to=lat,lon.
func (s *ServerContext) HandleDistance(w http.ResponseWriter, r *http.Request) {
	from, err := pointParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := pointParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d := geo.Distance(from, to)
	if s.Config.LegacyPi {
		d = geo.DistanceLegacy(from, to)
	}
	b := geo.Bearing(from, to)

	writeJSON(w, http.StatusOK, "application/json", distanceResponse{
		From:         from,
		To:           to,
		Distance:     d,
		DistanceText: geo.FormatDistance(d, s.Config.Units),
		Bearing:      b,
		Compass:      geo.Compass(b),
	})
}

type dmsResponse struct {
	DMS  geo.DMS `json:"dms"`
	DM   geo.DM  `json:"dm"`
	D    geo.DD  `json:"d"`
	Text string  `json:"text"`
}

// HandleDMS breaks ?value= into its sexagesimal forms for ?axis=lat|lon.
func (s *ServerContext) HandleDMS(w http.ResponseWriter, r *http.Request) {
	isLat, err := axisParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, err := floatParam(r, "value")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := dmsResponse{
		DMS: geo.ToDMS(value, isLat),
		DM:  geo.ToDM(value, isLat),
		D:   geo.ToD(value, isLat),
	}
	switch s.Config.CoordinateFormat {
	case geo.FormatDM:
		resp.Text = resp.DM.String()
	case geo.FormatDEC:
		resp.Text = resp.D.String()
	default:
		resp.Text = resp.DMS.String()
	}

	writeJSON(w, http.StatusOK, "application/json", resp)
}

type parseResponse struct {
	Decimal float64 `json:"decimal"`
	DMS     geo.DMS `json:"dms"`
}

// HandleParse reads a user-typed coordinate from ?value= for ?axis=lat|lon.
func (s *ServerContext) HandleParse(w http.ResponseWriter, r *http.Request) {
	isLat, err := axisParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := geo.ParseCoordinate(r.URL.Query().Get("value"), isLat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, "application/json", parseResponse{
		Decimal: v,
		DMS:     geo.ToDMS(v, isLat),
	})
}

type projectResponse struct {
	Planar    geo.Point `json:"planar"`
	Spherical geo.Point `json:"spherical"`
}

// HandleProject moves ?from= by ?distance= meters on ?bearing= degrees.
func (s *ServerContext) HandleProject(w http.ResponseWriter, r *http.Request) {
	from, err := pointParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	distance, err := floatParam(r, "distance")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if distance < 0 {
		writeError(w, http.StatusBadRequest, errors.New("distance must not be negative"))
		return
	}
	bearing, err := floatParam(r, "bearing")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, "application/json", projectResponse{
		Planar:    geo.DestinationPoint(from, distance, geo.BearingToRadians(bearing)),
		Spherical: geo.Destination(from, distance, bearing),
	})
}

// HandleTile serves a cached WebP tile, or a transparent one when missing.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	region, ok := s.Regions[r.PathValue("region")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	// only numeric coordinates reach the filesystem
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(strings.TrimSuffix(r.PathValue("y"), ".webp"))
	if errZ != nil || errX != nil || errY != nil || z < 0 || x < 0 || y < 0 {
		http.NotFound(w, r)
		return
	}

	tile := geo.Tile{Z: z, X: x, Y: y}
	path := processor.TilePath(processor.RegionDir(s.Config.CacheDir, region.Name), tile)
	if s.serveFile(w, r, path, "image/webp") {
		return
	}

	// tiles outside the region are never downloaded, inside ones may be later
	cacheControl := "public, max-age=86400"
	if geo.TileBounds(tile).Intersects(region.Bounds()) {
		cacheControl = "public, max-age=300"
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(s.TransparentTile)
}

// HandleIndex serves the node list page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if match := r.Header.Get("If-None-Match"); match == s.indexETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", s.indexETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, filepath.Clean(path))
	return true
}

func pointParam(r *http.Request, name string) (geo.Point, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return geo.Point{}, fmt.Errorf("missing %q parameter", name)
	}
	return geo.ParsePoint(v)
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("missing %q parameter", name)
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parameter %q must be a finite number", name)
	}
	return f, nil
}

// parseBBox reads the GeoJSON bbox order minLon,minLat,maxLon,maxLat.
func parseBBox(v string) (geo.Bounds, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, fmt.Errorf("bbox must be minLon,minLat,maxLon,maxLat")
	}

	var f [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return geo.Bounds{}, fmt.Errorf("bbox value %q is not a finite number", p)
		}
		f[i] = n
	}

	b := geo.Bounds{MinLon: f[0], MinLat: f[1], MaxLon: f[2], MaxLat: f[3]}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return geo.Bounds{}, fmt.Errorf("bbox minimum exceeds maximum")
	}
	return b, nil
}

func axisParam(r *http.Request) (bool, error) {
	switch strings.ToLower(r.URL.Query().Get("axis")) {
	case "", "lat", "latitude":
		return true, nil
	case "lon", "lng", "longitude":
		return false, nil
	default:
		return false, fmt.Errorf("axis must be lat or lon")
	}
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, "application/json", map[string]string{"error": err.Error()})
}
