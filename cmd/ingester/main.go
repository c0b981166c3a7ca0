package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jessevdk/go-flags"

	"station-climatology/internal/config"
	"station-climatology/internal/repository"
	"station-climatology/internal/services"
	"station-climatology/migrations"
	"station-climatology/pkg/database"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// CmdArgs are the ingester command-line options. Paths default to the STORE_* settings.
type CmdArgs struct {
	Catalog   string `long:"catalog" description:"Station catalog CSV (default: STORE_CATALOG_PATH)"`
	Quality   string `long:"quality" description:"Quality results CSV (default: STORE_QUALITY_PATH)"`
	Series    string `long:"series" description:"Glob of series part files (default: STORE_SERIES_PATTERN)"`
	Sep       string `long:"sep" default:"" description:"Separator character; empty detects ',' or ';'"`
	BatchSize int    `long:"batch-size" default:"1000" description:"Observations per insert transaction"`
	Copy      bool   `long:"copy" description:"Load series with COPY (postgres only)"`
	Replace   bool   `long:"replace" description:"Delete stored series of loaded stations first"`
	Migrate   bool   `long:"migrate" description:"Apply schema migrations before loading"`
}

func processArgs() (*CmdArgs, error) {
	args := CmdArgs{}
	if _, err := flags.Parse(&args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}
	if utf8.RuneCountInString(args.Sep) > 1 {
		return nil, fmt.Errorf("--sep %q must be a single character", args.Sep)
	}
	return &args, nil
}

func main() {
	args, err := processArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid arguments: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climatology-ingester", "1.0.0", cfg.LogLevel())
	defer logger.Sync()

	opts := services.IngestionOptions{
		CatalogPath:   firstNonEmpty(args.Catalog, cfg.Store.CatalogPath),
		QualityPath:   firstNonEmpty(args.Quality, cfg.Store.QualityPath),
		SeriesPattern: firstNonEmpty(args.Series, cfg.Store.SeriesPattern),
		BatchSize:     args.BatchSize,
		UseCopy:       args.Copy,
		Replace:       args.Replace,
	}
	if args.Sep != "" {
		opts.Separator, _ = utf8.DecodeRuneInString(args.Sep)
	}

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting station data ingestion", logging.Fields{
		"version":    "1.0.0",
		"catalog":    opts.CatalogPath,
		"series":     opts.SeriesPattern,
		"batch_size": opts.BatchSize,
		"copy":       opts.UseCopy,
		"db_driver":  cfg.Database.Driver,
	})

	metricsCollector := metrics.NewCollector("climatology_ingester")

	db, err := database.Open(cfg.DBConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	if args.Migrate {
		applied, err := db.Migrate(ctx, migrations.Up)
		if err != nil {
			logger.Fatal(ctx, "[INGESTER_ERROR] Migration failed", logging.Fields{}, err)
		}
		logger.Info(ctx, "[INGESTER_MIGRATED] Schema migrated", logging.Fields{"scripts": applied})
	}

	repo := repository.NewSQLRepository(db, logger, metricsCollector)

	var copier services.BulkCopier
	if db.Driver() == database.DriverPostgres {
		copier = db
	}
	ingestionService := services.NewIngestionService(repo, copier, logger, metricsCollector)

	result, err := ingestionService.Ingest(ctx, opts)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Stations Loaded:    %d\n", result.StationsLoaded)
	fmt.Printf("Unmatched Stations: %d\n", result.UnmatchedStations)
	fmt.Printf("Series Files:       %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Skipped Records:    %d\n", result.SkippedRecords)
	if opts.Replace {
		fmt.Printf("Deleted Records:    %d\n", result.DeletedRecords)
	}
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i == 10 {
				fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
				break
			}
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"stations_loaded":    result.StationsLoaded,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
