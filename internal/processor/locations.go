// Package processor loads mesh node dumps and caches map tiles for offline use.
package processor

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/woozymasta/meshgeo/internal/config"
	"github.com/woozymasta/meshgeo/internal/geo"
	"github.com/woozymasta/meshgeo/internal/metrics"
	"github.com/woozymasta/meshgeo/internal/node"

	"github.com/rs/zerolog/log"
)

// NodesFile is the GeoJSON export written into the cache directory.
const NodesFile = "nodes.geojson"

// LoadNodes fills the store from inline config first, then from the
// configured node source. It returns how many nodes were upserted.
func LoadNodes(client *http.Client, cfg *config.Config, store *node.Store) (int, error) {
	count := 0

	// Inline Data Priority
	for _, n := range cfg.NodesInline {
		store.Upsert(n)
		count++
	}
	if len(cfg.NodesInline) > 0 {
		log.Info().
			Int("nodes", len(cfg.NodesInline)).
			Msg("Using inline node data from config")
	}

	if cfg.NodesSource != "" {
		log.Info().
			Str("source", cfg.NodesSource).
			Msg("Loading nodes from source")

		nodes, err := FetchNodes(client, cfg.NodesSource)
		if err != nil {
			return count, err
		}
		for _, n := range nodes {
			store.Upsert(n)
		}
		count += len(nodes)
	}

	metrics.NodesKnown.Set(float64(store.Len()))

	return count, nil
}

// TrackNodes keeps the known-nodes gauge in step with store changes until
// the returned stop function is called.
func TrackNodes(store *node.Store) (stop func()) {
	events, cancel := store.Subscribe(64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range events {
			metrics.NodesKnown.Set(float64(store.Len()))
			log.Debug().
				Str("node", ev.Node.User.ID).
				Str("event", ev.Kind.String()).
				Msg("Node changed")
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// ProcessNodes loads nodes into the store and writes their GeoJSON export
// into the cache directory. An existing export is kept unless force is set.
func ProcessNodes(client *http.Client, cfg *config.Config, store *node.Store, force bool) error {
	destFile := filepath.Join(cfg.CacheDir, NodesFile)

	// Check if file exists
	if _, err := os.Stat(destFile); err == nil {
		if !force {
			log.Debug().Str("path", destFile).Msg("Nodes file exists, skipping")
			return nil
		}
	}

	count, err := LoadNodes(client, cfg, store)
	if err != nil {
		return err
	}

	fc := store.FeatureCollection()
	log.Info().
		Int("nodes", count).
		Int("features", len(fc.Features)).
		Str("path", destFile).
		Msg("Writing node positions")

	return saveGeoJSON(cfg.CacheDir, destFile, fc)
}

// saveGeoJSON marshals the feature collection and atomically replaces path.
func saveGeoJSON(dir, path string, fc geo.FeatureCollection) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".nodes-*.geojson")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := json.NewEncoder(f).Encode(fc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}

	// We care about write errors on close
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}
