package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/meshgeo/internal/config"
	"github.com/woozymasta/meshgeo/internal/logger"
	"github.com/woozymasta/meshgeo/internal/node"
	"github.com/woozymasta/meshgeo/internal/processor"
	"github.com/woozymasta/meshgeo/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	LegacyPi   bool   `long:"legacy-pi"        env:"LEGACY_PI"      description:"Compute distances with the legacy pi constant"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.LegacyPi {
		cfg.LegacyPi = true
	}

	ourNum, err := cfg.OurNum()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve local node")
	}

	store := node.NewStore(ourNum,
		node.WithUnits(cfg.Units),
		node.WithCoordinateFormat(cfg.CoordinateFormat),
		node.WithLegacyPi(cfg.LegacyPi))

	stopTracking := processor.TrackNodes(store)
	defer stopTracking()

	client := &http.Client{Timeout: 15 * time.Second}
	if _, err := processor.LoadNodes(client, cfg, store); err != nil {
		log.Error().Err(err).Msg("Failed to load nodes, starting with what is known")
	}

	srvCtx, err := server.NewServerContext(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Str("our_node", node.IDFromNum(ourNum)).
		Int("nodes_loaded", store.Len()).
		Int("regions", len(cfg.Regions)).
		Str("units", string(cfg.Units)).
		Msg("Web server started")

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
