package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uav-flightlog/backend/internal/api"
	"github.com/uav-flightlog/backend/internal/cache"
	"github.com/uav-flightlog/backend/internal/config"
	"github.com/uav-flightlog/backend/internal/logger"
	"github.com/uav-flightlog/backend/internal/metrics"
	"github.com/uav-flightlog/backend/internal/parser"
	"github.com/uav-flightlog/backend/internal/session"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// configFileName is looked up next to the executable unless
// FLIGHTLOG_CONFIG names another file.
const configFileName = "FlightLogConverter.config"

func configPath() (string, error) {
	if p := os.Getenv(config.EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), configFileName), nil
}

func main() {
	path, err := configPath()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Advanced.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, path, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, configPath string, log *zap.Logger) error {
	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Advanced.EnableMetrics {
		m = metrics.New()
	}

	var store *cache.Store
	if cfg.Storage.EnablePersistence {
		var err error
		store, err = cache.NewStore(cfg.Storage.CacheDirectory, log, m)
		if err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	converter := session.NewConverter(session.ConverterConfig{
		NamesPath:    cfg.Storage.NameRegistryFile,
		SourcesPath:  cfg.Storage.SourceListFile,
		OutputDir:    cfg.Storage.OutputDirectory,
		ExportDuckDB: cfg.Processing.EnableDuckDBExport,
		Merge:        parser.MergeConfig{SkipDuplicateColumns: cfg.Processing.SkipDuplicateColumns},
	}, store, log, m)
	sessionMgr := session.NewManager(converter, log, cfg.Processing.MaxSessions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go func() {
		interval := time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		maxAge := time.Duration(cfg.Processing.SessionTimeoutMinutes) * time.Minute
		for {
			select {
			case <-ticker.C:
				if n := sessionMgr.CleanupOldSessions(maxAge); n > 0 {
					log.Info("session cleanup", zap.Int("removed", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Log:            log,
		Metrics:        m,
		LogRequests:    cfg.Advanced.EnableRequestLogging,
		ShowErrorInfo:  logger.ParseLevel(cfg.Advanced.LogLevel) <= zap.DebugLevel,
		RequestTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		SessionMgr:  sessionMgr,
		Cache:       store,
		Metrics:     m,
		Log:         log,
		DataDir:     cfg.Storage.DataDirectory,
		OutputDir:   cfg.Storage.OutputDirectory,
		CatalogPath: cfg.Storage.PlotCatalogFile,
		Version:     Version,
	}), m)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info("flight log converter starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", configPath),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("data_dir", cfg.Storage.DataDirectory),
		zap.String("output_dir", cfg.Storage.OutputDirectory),
		zap.Bool("cache", store != nil),
		zap.Bool("metrics", m != nil),
		zap.Bool("duckdb_export", cfg.Processing.EnableDuckDBExport))

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
