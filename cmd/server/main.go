package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"station-climatology/internal/config"
	"station-climatology/internal/filestore"
	"station-climatology/internal/handlers"
	"station-climatology/internal/repository"
	"station-climatology/internal/services"
	"station-climatology/pkg/database"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

const version = "1.0.0"

// backend is the wired catalog and series store for one STORE_BACKEND
type backend struct {
	catalog repository.CatalogRepository
	series  repository.SeriesRepository
	store   services.DataStore
	caches  []repository.Invalidator
	health  handlers.HealthFunc
	close   func() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climatology-api", version, cfg.LogLevel())
	if cfg.Logging.File != "" {
		logFile := logging.RotatingFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
		defer logFile.Close()
		logger.SetOutput(logFile)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[STARTUP] Starting station climatology API server", logging.Fields{
		"version":       version,
		"server_host":   cfg.Server.Host,
		"server_port":   cfg.Server.Port,
		"store_backend": cfg.Store.Backend,
		"locale":        string(cfg.Locale()),
	})

	metricsCollector := metrics.NewCollector("station_climatology")

	be, err := openBackend(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to open store", logging.Fields{
			"store_backend": cfg.Store.Backend,
		}, err)
	}
	defer be.close()

	catalogService := services.NewCatalogService(be.catalog, logger, metricsCollector)
	climatologyService := services.NewClimatologyService(be.catalog, be.series, cfg.Locale(), logger, metricsCollector)
	exportService := services.NewExportService(be.catalog, be.series, logger, metricsCollector)
	reloadService := services.NewReloadService(be.store, be.caches, logger, metricsCollector)

	handler := handlers.NewClimatologyHandler(
		catalogService,
		climatologyService,
		exportService,
		reloadService,
		be.health,
		logger,
		metricsCollector,
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go reloadService.Run(ctx, cfg.Store.ReloadInterval)

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	<-ctx.Done()

	logger.Info(context.Background(), "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(shutdownCtx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

func openBackend(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*backend, error) {
	switch cfg.Store.Backend {
	case config.BackendFiles:
		sep, err := cfg.Store.SeparatorRune()
		if err != nil {
			return nil, err
		}

		store := filestore.New(filestore.Config{
			CatalogPath:   cfg.Store.CatalogPath,
			QualityPath:   cfg.Store.QualityPath,
			SeriesPattern: cfg.Store.SeriesPattern,
			Separator:     sep,
			MaxParallel:   cfg.Store.MaxParallel,
		}, logger, metricsCollector)
		if err := store.Load(ctx); err != nil {
			return nil, err
		}

		return &backend{
			catalog: store,
			series:  store,
			store:   store,
			health: func(ctx context.Context) error {
				if store.Stats().Stations == 0 {
					return errors.New("no stations loaded")
				}
				return nil
			},
			close: func() error { return nil },
		}, nil

	case config.BackendSQL:
		db, err := database.Open(cfg.DBConfig(), logger, metricsCollector)
		if err != nil {
			return nil, err
		}

		repo := repository.NewSQLRepository(db, logger, metricsCollector)
		catalog := repository.NewCachedCatalog(repo, cfg.Store.CacheTTL, logger, metricsCollector)
		series := repository.NewCachedSeries(repo, cfg.Store.CacheTTL, cfg.Store.SeriesCacheSize, logger, metricsCollector)

		return &backend{
			catalog: catalog,
			series:  series,
			caches:  []repository.Invalidator{catalog, series},
			health:  repo.HealthCheck,
			close:   db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
