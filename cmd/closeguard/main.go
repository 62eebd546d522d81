package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/closeguard/closeguard/internal/cache"
	"github.com/closeguard/closeguard/internal/config"
	"github.com/closeguard/closeguard/internal/engine"
	"github.com/closeguard/closeguard/internal/logger"
	"github.com/closeguard/closeguard/internal/reports"
	"github.com/closeguard/closeguard/internal/rules"
	"github.com/closeguard/closeguard/internal/server"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("CloseGuard %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting CloseGuard",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Load the rule catalog, falling back to the built-in rules when no
	// catalog file is configured.
	var catalog *rules.Catalog
	if cfg.Rules.Path != "" {
		catalog, err = rules.Load(cfg.Rules.Path, log.WithComponent("rules"))
		if err != nil {
			log.Fatal("Failed to load rule catalog",
				zap.String("path", cfg.Rules.Path),
				zap.Error(err),
			)
		}
	} else {
		catalog = rules.Default(log.WithComponent("rules"))
	}

	eng := engine.New(catalog, log.WithComponent("engine"))

	// Watch the catalog file for changes when configured.
	if cfg.Rules.Path != "" && cfg.Rules.Watch {
		watcher, err := rules.Watch(cfg.Rules.Path, log.WithComponent("rules"), eng.SetCatalog)
		if err != nil {
			log.Fatal("Failed to watch rule catalog", zap.Error(err))
		}
		defer watcher.Close()
	}

	// Report store
	store, err := newStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize report store", zap.Error(err))
	}
	defer store.Close()

	// Optional Redis result cache
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache, err = cache.NewResultCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("Failed to initialize result cache", zap.Error(err))
		}
		defer resultCache.Close()
	}

	srv := server.New(cfg, log, eng, store, resultCache)

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// newStore builds the configured report store backend.
func newStore(cfg *config.Config, log *logger.Logger) (reports.Store, error) {
	switch cfg.Reports.Backend {
	case "postgres":
		return reports.NewPostgresStore(&reports.PostgresConfig{
			DatabaseURL:     cfg.Reports.DatabaseURL,
			MaxOpenConns:    cfg.Reports.MaxOpenConns,
			MaxIdleConns:    cfg.Reports.MaxIdleConns,
			ConnMaxLifetime: cfg.Reports.ConnMaxLifetime,
		}, log.WithComponent("reports").Logger)
	default:
		return reports.NewMemoryStore(), nil
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
