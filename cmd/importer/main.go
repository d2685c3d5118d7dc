// Package main provides the catalog import CLI for larder.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/feastwise/larder/internal/config"
	"github.com/feastwise/larder/internal/db/gorm"
	"github.com/feastwise/larder/internal/db/sqlite"
	"github.com/feastwise/larder/internal/importer"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	csvPath := flag.String("csv", "", "Path to a Food.com-style recipe CSV export")
	seedPath := flag.String("seed", "", "Path to a YAML seed file with curated recipes and flavor vectors")
	chunkSize := flag.Int("chunk", importer.DefaultChunkSize, "Recipes per import batch")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *csvPath == "" && *seedPath == "" {
		log.Fatal().Msg("at least one of --csv or --seed is required")
	}

	_ = godotenv.Load()

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals so a long CSV import can be stopped cleanly
	// between chunks.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Interrupted, stopping import")
		cancel()
	}()

	impCfg := &importer.Config{ChunkSize: *chunkSize}

	var catalog importer.Catalog
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := gorm.NewStore(gorm.Config{DSN: cfg.PostgresDSN, MaxConns: cfg.MaxConns})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize postgres store")
		}
		defer store.Close()
		catalog = store.Stores().Catalog

		// COPY the link rows instead of row-at-a-time inserts.
		bulk, err := importer.NewPgxLinkWriter(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Warn().Err(err).Msg("Bulk link writer unavailable, falling back to inline inserts")
		} else {
			defer bulk.Close(context.Background())
			impCfg.Bulk = bulk
		}
	default:
		store, err := sqlite.NewStore(sqlite.StoreConfig{Path: cfg.SQLitePath, MaxConns: cfg.MaxConns})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize sqlite store")
		}
		defer store.Close()
		catalog = store.Stores().Catalog
	}

	log.Info().
		Str("version", Version).
		Str("backend", cfg.Backend).
		Str("csv", *csvPath).
		Str("seed", *seedPath).
		Msg("Starting catalog import")

	imp := importer.New(catalog, impCfg)
	start := time.Now()

	var seed *importer.Seed
	if *seedPath != "" {
		f, err := os.Open(*seedPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *seedPath).Msg("Failed to open seed file")
		}
		seed, err = importer.LoadSeed(f)
		_ = f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("path", *seedPath).Msg("Failed to parse seed file")
		}

		if _, err := imp.ImportSeed(ctx, seed); err != nil {
			log.Fatal().Err(err).Msg("Seed import failed")
		}
	}

	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *csvPath).Msg("Failed to open CSV file")
		}
		// The seed is threaded through so curated flavor vectors
		// attach to matching CSV titles.
		_, err = imp.ImportCSV(ctx, f, seed)
		_ = f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("CSV import failed")
		}
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("Import complete")
}
