package server

import (
	"os"
	"sort"

	"github.com/woozymasta/meshgeo/internal/config"
	"github.com/woozymasta/meshgeo/internal/node"
	"github.com/woozymasta/meshgeo/internal/processor"

	"github.com/rs/zerolog/log"
)

// RegionInfo describes an offline tile region for the map client.
type RegionInfo struct {
	config.Region
	Cached bool `json:"cached"`
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	Store           *node.Store
	Regions         map[string]RegionInfo
	IndexHTML       []byte
	TransparentTile []byte
	indexETag       string
}

// NewServerContext initializes the context, checks which regions have cached
// tiles and prepares the static assets.
func NewServerContext(cfg *config.Config, store *node.Store) (*ServerContext, error) {
	log.Info().Int("config_regions_count", len(cfg.Regions)).Msg("Initializing server context")

	regions := make(map[string]RegionInfo, len(cfg.Regions))
	for _, r := range cfg.Regions {
		info := RegionInfo{Region: r}

		// Check for cache existence
		dir := processor.RegionDir(cfg.CacheDir, r.Name)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.Warn().
				Str("region", r.Name).
				Str("path", dir).
				Msg("Region has no cached tiles, serving transparent tiles")
		} else {
			info.Cached = true
			log.Debug().
				Str("region", r.Name).
				Msg("Region cache found")
		}

		regions[r.Name] = info
	}

	index, err := minifiedIndex()
	if err != nil {
		return nil, err
	}
	tile, err := transparentTile(256)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("regions", len(regions)).
		Int("nodes", store.Len()).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:          cfg,
		Store:           store,
		Regions:         regions,
		IndexHTML:       index,
		TransparentTile: tile,
		indexETag:       etagFor(index),
	}, nil
}

// RegionList returns the regions sorted by name.
func (s *ServerContext) RegionList() []RegionInfo {
	list := make([]RegionInfo, 0, len(s.Regions))
	for _, r := range s.Regions {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
