package main

import (
	"crypto/tls"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/meshgeo/internal/config"
	"github.com/woozymasta/meshgeo/internal/logger"
	"github.com/woozymasta/meshgeo/internal/node"
	"github.com/woozymasta/meshgeo/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE"  description:"Path to configuration file" default:"config.yaml"`
	Limit       []string `short:"l" long:"limit"       env:"LIMIT_NAMES"  description:"Limit processing to specific region names"`
	Concurrency int      `short:"p" long:"concurrency" env:"CONCURRENCY"  description:"Concurrency" default:"8"`
	TilesOnly   bool     `short:"t" long:"tiles-only"  description:"Download tiles only"`
	NodesOnly   bool     `short:"n" long:"nodes-only"  description:"Export node GeoJSON only"`
	Force       bool     `short:"f" long:"force"       description:"Force overwrite of existing files"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	processTiles := true
	processNodes := true
	if opts.TilesOnly && !opts.NodesOnly {
		processNodes = false
	} else if opts.NodesOnly && !opts.TilesOnly {
		processTiles = false
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	if processNodes {
		ourNum, err := cfg.OurNum()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve local node")
		}
		store := node.NewStore(ourNum,
			node.WithUnits(cfg.Units),
			node.WithCoordinateFormat(cfg.CoordinateFormat),
			node.WithLegacyPi(cfg.LegacyPi))

		if err := processor.ProcessNodes(client, cfg, store, opts.Force); err != nil {
			log.Error().Err(err).Msg("Failed to process nodes")
		}
	}

	if !processTiles {
		log.Info().Msg("Loader finished successfully")
		return
	}

	// Filter regions if limit is set
	regions := cfg.Regions
	if len(opts.Limit) > 0 {
		regions = make([]config.Region, 0, len(opts.Limit))
		available := make(map[string]config.Region, len(cfg.Regions))
		for _, r := range cfg.Regions {
			available[r.Name] = r
		}

		seen := make(map[string]bool)
		for _, name := range opts.Limit {
			if seen[name] {
				continue
			}
			seen[name] = true

			if r, ok := available[name]; ok {
				regions = append(regions, r)
			} else {
				log.Error().
					Str("name", name).
					Msg("Region specified in --limit not found in configuration")
			}
		}
	}

	log.Info().
		Int("regions_total", len(cfg.Regions)).
		Int("regions_queued", len(regions)).
		Int("concurrency", opts.Concurrency).
		Msg("Starting loader")

	failed := 0
	for _, r := range regions {
		stats := processor.ProcessRegion(client, cfg.CacheDir, r, opts.Concurrency, opts.Force)
		failed += stats.Failed
	}

	if failed > 0 {
		log.Warn().Int("failed_tiles", failed).Msg("Loader finished with errors")
		return
	}
	log.Info().Msg("Loader finished successfully")
}
