package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/unklstewy/flightarcs/internal/db"
	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/config"
	"github.com/unklstewy/flightarcs/pkg/dataset"
	"github.com/unklstewy/flightarcs/pkg/logger"
)

// Airport Dataset Importer
// Loads an airport GeoJSON FeatureCollection (OurAirports property names)
// into PostgreSQL so the route tools can run with dataset.source = "postgres".
//
// The dataset comes from, in order of precedence:
// - -file: a local GeoJSON file
// - -url, or dataset.url in the config: a remote GeoJSON document
// - the dataset embedded in the binary

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	file := flag.String("file", "", "Local GeoJSON file to import")
	url := flag.String("url", "", "Remote GeoJSON to import (overrides dataset.url)")
	prune := flag.Bool("prune", false, "Delete airports not present in the imported dataset")
	dryRun := flag.Bool("dry-run", false, "Parse and validate the dataset without touching the database")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Airport Dataset Importer")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *url != "" {
		cfg.Dataset.URL = *url
	}

	if err := run(cfg, *file, *prune, *dryRun); err != nil {
		log.Fatal(err)
	}
}

// run performs the import; deferred cleanup happens before main exits.
func run(cfg *config.Config, file string, prune, dryRun bool) error {
	zl := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Console:    true,
	})
	defer zl.Sync()

	ctx := context.Background()

	catalog, source, err := loadDataset(ctx, cfg, file, zl)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	log.Printf("✓ Parsed %d airports (%d hubs) from %s", catalog.Len(), len(catalog.Hubs()), source)

	if dryRun {
		log.Println("Dry run, database not modified")
		return nil
	}

	log.Println("Connecting to database...")
	database, err := db.ReconnectWithRetry(ctx, cfg.Database, cfg.Dataset.MaxRetries, time.Second, zl)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	log.Println("✓ Database connected")

	if err := database.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Println("✓ Schema initialized")

	repo := db.NewAirportRepository(database)

	log.Println("\n===========================================")
	log.Println("Importing Airports")
	log.Println("===========================================")

	count, err := repo.UpsertAirports(ctx, catalog.All())
	if err != nil {
		return fmt.Errorf("failed to import airports: %w", err)
	}
	log.Printf("✓ Upserted %d airports", count)

	if prune {
		removed, err := repo.DeleteMissing(ctx, catalog.All())
		if err != nil {
			log.Printf("Warning: Failed to prune airports: %v", err)
		} else {
			log.Printf("✓ Pruned %d airports", removed)
		}
	}

	stats, err := database.GetStats(ctx)
	if err != nil {
		log.Printf("Warning: Failed to read stats: %v", err)
		return nil
	}

	log.Println("\n===========================================")
	log.Println("Import Complete")
	log.Println("===========================================")
	log.Printf("Total airports: %v", stats["airports"])
	log.Printf("Hubs: %v", stats["hubs"])
	return nil
}

// loadDataset picks the dataset source and returns a description of it.
func loadDataset(ctx context.Context, cfg *config.Config, file string, log logger.Logger) (*airports.Catalog, string, error) {
	switch {
	case file != "":
		catalog, err := airports.LoadFile(file)
		return catalog, file, err

	case cfg.Dataset.URL != "":
		retry := dataset.DefaultRetryConfig()
		retry.MaxRetries = cfg.Dataset.MaxRetries

		fetcher := dataset.NewFetcher(dataset.Config{
			RequestsPerSecond: cfg.Dataset.RequestsPerSecond,
			Timeout:           time.Duration(cfg.Dataset.TimeoutSeconds) * time.Second,
			Retry:             retry,
			Logger:            log,
		})
		catalog, err := fetcher.FetchCatalog(ctx, cfg.Dataset.URL)
		return catalog, cfg.Dataset.URL, err

	default:
		catalog, err := airports.Embedded()
		if err != nil {
			return nil, "", fmt.Errorf("embedded dataset: %w", err)
		}
		return catalog, "embedded dataset", nil
	}
}
