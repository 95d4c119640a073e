package processor

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/woozymasta/meshgeo/internal/config"
	"github.com/woozymasta/meshgeo/internal/geo"
	"github.com/woozymasta/meshgeo/internal/metrics"
	"github.com/woozymasta/meshgeo/internal/node"

	"github.com/chai2010/webp"
	"github.com/prometheus/client_golang/prometheus"
)

const nodeList = `[
  {"num": 2712847316, "user": {"id": "!a1b2c3d4", "longName": "Base Dallas", "shortName": "BD"},
   "position": {"latitudeI": 327766650, "longitudeI": -967969890}},
  {"num": 16, "user": {"longName": "Richardson Relay", "shortName": "RR"},
   "position": {"latitudeI": 329607580, "longitudeI": -967335210}, "snr": 6.25, "rssi": -95, "lastHeard": 1715003456}
]`

const nodeMap = `{
  "!00000020": {"user": {"longName": "Mapped"}, "position": {"latitudeI": 10, "longitudeI": 10}},
  "!00000010": {"num": 16, "user": {"longName": "Explicit"}}
}`

func pngBytes(t *testing.T, size int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeNodes(t *testing.T) {
	nodes, err := decodeNodes([]byte(nodeList))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(nodes) != 2 || nodes[1].SNR != 6.25 || nodes[1].Position.LatitudeI != 329607580 {
		t.Fatalf("list = %+v", nodes)
	}

	nodes, err = decodeNodes([]byte(nodeMap))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Num != 16 || nodes[1].Num != 0x20 {
		t.Fatalf("map = %+v", nodes)
	}

	for _, bad := range []string{"", "   ", "{", `{"zz!": {}}`, `[{"num": "x"}]`} {
		if _, err := decodeNodes([]byte(bad)); err == nil {
			t.Errorf("decodeNodes(%q) expected error", bad)
		}
	}
}

func TestFetchNodes_HTTPAndFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path != "/nodes.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(nodeList))
	}))
	defer srv.Close()

	nodes, err := FetchNodes(srv.Client(), srv.URL+"/nodes.json")
	if err != nil || len(nodes) != 2 {
		t.Fatalf("http fetch = %d nodes, %v", len(nodes), err)
	}

	if _, err := FetchNodes(srv.Client(), srv.URL+"/missing.json"); err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "nodes.json")
	if err := os.WriteFile(path, []byte(nodeMap), 0o644); err != nil {
		t.Fatal(err)
	}
	nodes, err = FetchNodes(srv.Client(), path)
	if err != nil || len(nodes) != 2 {
		t.Fatalf("file fetch = %d nodes, %v", len(nodes), err)
	}
}

func TestProcessNodes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dump.json")
	if err := os.WriteFile(src, []byte(nodeList), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		CacheDir:    filepath.Join(dir, "cache"),
		NodesSource: src,
		NodesInline: []node.Node{
			{Num: 99, User: node.User{LongName: "Inline"}, Position: node.Position{LatitudeI: 327800000, LongitudeI: -967970000}},
		},
	}
	store := node.NewStore(0xa1b2c3d4)

	if err := ProcessNodes(http.DefaultClient, cfg, store, false); err != nil {
		t.Fatalf("ProcessNodes: %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("store has %d nodes", store.Len())
	}

	out := filepath.Join(cfg.CacheDir, NodesFile)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("export has %d features", len(fc.Features))
	}
	if fc.Features[0].Properties["local"] != true {
		t.Errorf("first feature should be the local node: %v", fc.Features[0].Properties)
	}

	// existing export is kept without force
	if err := os.WriteFile(out, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ProcessNodes(http.DefaultClient, cfg, node.NewStore(1), false); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "keep" {
		t.Fatalf("export overwritten without force")
	}

	if err := ProcessNodes(http.DefaultClient, cfg, node.NewStore(1), true); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) == "keep" {
		t.Fatalf("forced run did not overwrite")
	}

	leftovers, _ := filepath.Glob(filepath.Join(cfg.CacheDir, ".nodes-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestLoadNodes_SourceError(t *testing.T) {
	cfg := &config.Config{NodesSource: filepath.Join(t.TempDir(), "absent.json")}
	if _, err := LoadNodes(http.DefaultClient, cfg, node.NewStore(1)); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestBuildURL(t *testing.T) {
	c := geo.Tile{Z: 3, X: 2, Y: 1}

	if got := buildURL("https://t/{z}/{x}/{y}.png", c); got != "https://t/3/2/1.png" {
		t.Errorf("xyz = %q", got)
	}
	if got := buildURL("https://t/{z}/{x}/{tms_y}.png", c); got != "https://t/3/2/6.png" {
		t.Errorf("tms = %q", got)
	}
}

func TestPlanRegion(t *testing.T) {
	r := config.Region{
		Center:  geo.Point{Lat: 32.776665, Lon: -96.796989},
		Radius:  100,
		ZoomMin: 0,
		ZoomMax: 2,
	}

	tiles := PlanRegion(r)
	want := []geo.Tile{{Z: 0, X: 0, Y: 0}, {Z: 1, X: 0, Y: 0}, {Z: 2, X: 0, Y: 1}}
	if len(tiles) != len(want) {
		t.Fatalf("tiles = %v", tiles)
	}
	for i := range want {
		if tiles[i] != want[i] {
			t.Errorf("tile %d = %+v, want %+v", i, tiles[i], want[i])
		}
	}
}

func TestProcessRegion(t *testing.T) {
	small := pngBytes(t, 256)
	large := pngBytes(t, 512)
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/0/"):
			_, _ = w.Write(small)
		case strings.HasPrefix(r.URL.Path, "/1/"):
			_, _ = w.Write(large)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	region := config.Region{
		Name:     "dallas",
		URL:      srv.URL + "/{z}/{x}/{y}.png",
		Center:   geo.Point{Lat: 32.776665, Lon: -96.796989},
		Radius:   100,
		ZoomMax:  2,
		TileSize: 256,
	}

	stats := ProcessRegion(srv.Client(), cacheDir, region, 4, false)
	if stats.Total != 3 || stats.Downloaded != 2 || stats.Missing != 1 || stats.Failed != 0 {
		t.Fatalf("first run stats = %+v", stats)
	}

	for _, tile := range []geo.Tile{{Z: 0, X: 0, Y: 0}, {Z: 1, X: 0, Y: 0}} {
		f, err := os.Open(TilePath(RegionDir(cacheDir, "dallas"), tile))
		if err != nil {
			t.Fatalf("tile %+v not written: %v", tile, err)
		}
		cfg, err := webp.DecodeConfig(f)
		_ = f.Close()
		if err != nil {
			t.Fatalf("tile %+v is not webp: %v", tile, err)
		}
		if cfg.Width != 256 || cfg.Height != 256 {
			t.Errorf("tile %+v is %dx%d, want 256x256", tile, cfg.Width, cfg.Height)
		}
	}

	requests.Store(0)
	stats = ProcessRegion(srv.Client(), cacheDir, region, 2, false)
	if stats.Cached != 2 || stats.Missing != 1 || stats.Downloaded != 0 {
		t.Fatalf("second run stats = %+v", stats)
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("second run made %d requests, want 1 (the missing tile)", n)
	}

	stats = ProcessRegion(srv.Client(), cacheDir, region, 0, true)
	if stats.Downloaded != 2 {
		t.Fatalf("forced run stats = %+v", stats)
	}
}

func TestProcessRegion_ServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/0/") {
			_, _ = w.Write([]byte("not an image"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	region := config.Region{
		Name:     "broken",
		URL:      srv.URL + "/{z}/{x}/{y}.png",
		Center:   geo.Point{Lat: 10, Lon: 10},
		Radius:   100,
		ZoomMax:  1,
		TileSize: 256,
	}

	stats := ProcessRegion(srv.Client(), t.TempDir(), region, 1, false)
	if stats.Missing != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestProcessRegion_ReplacesTruncatedTile(t *testing.T) {
	small := pngBytes(t, 256)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/0/0/0.png" {
			_, _ = w.Write(small)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	region := config.Region{
		Name:     "dallas",
		URL:      srv.URL + "/{z}/{x}/{y}.png",
		Center:   geo.Point{Lat: 32.776665, Lon: -96.796989},
		Radius:   100,
		TileSize: 256,
	}

	if stats := ProcessRegion(srv.Client(), cacheDir, region, 1, false); stats.Downloaded != 1 {
		t.Fatalf("first run stats = %+v", stats)
	}

	path := TilePath(RegionDir(cacheDir, "dallas"), geo.Tile{})
	if !tileComplete(path) {
		t.Fatal("freshly written tile reported incomplete")
	}

	// an interrupted write leaves the header and part of the payload
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}
	if tileComplete(path) {
		t.Fatal("truncated tile reported complete")
	}

	stats := ProcessRegion(srv.Client(), cacheDir, region, 1, false)
	if stats.Downloaded != 1 || stats.Cached != 0 {
		t.Fatalf("truncated tile not replaced: %+v", stats)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := webp.DecodeConfig(f); err != nil {
		t.Fatalf("replacement tile is not webp: %v", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".tile-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestTileComplete_RejectsNonWebP(t *testing.T) {
	dir := t.TempDir()

	for name, data := range map[string][]byte{
		"empty": nil,
		"short": []byte("RIFF"),
		"png":   pngBytes(t, 4),
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if tileComplete(path) {
			t.Errorf("%s reported complete", name)
		}
	}

	if tileComplete(filepath.Join(dir, "absent")) {
		t.Error("missing file reported complete")
	}
}

func nodesKnown(t *testing.T) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() == "meshgeo_nodes_known" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("meshgeo_nodes_known not registered")
	return 0
}

func TestTrackNodes(t *testing.T) {
	store := node.NewStore(1)
	metrics.NodesKnown.Set(0)

	stop := TrackNodes(store)
	store.Upsert(node.Node{Num: 1})
	store.Upsert(node.Node{Num: 2})
	store.Upsert(node.Node{Num: 3})
	store.Remove(2)
	stop()

	if got := nodesKnown(t); got != 2 {
		t.Fatalf("nodes gauge = %v, want 2", got)
	}

	// changes after stop are no longer tracked
	store.Upsert(node.Node{Num: 4})
	if got := nodesKnown(t); got != 2 {
		t.Fatalf("nodes gauge after stop = %v", got)
	}
}
