package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coastal-clean/siteplanner/internal/api"
	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/config"
	"github.com/coastal-clean/siteplanner/internal/planner"
	"github.com/coastal-clean/siteplanner/internal/storage"
	"github.com/coastal-clean/siteplanner/internal/web"
	"github.com/labstack/echo/v4"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(filepath.Dir(exePath), "SitePlanner.config")
	if p := os.Getenv("SITEPLANNER_CONFIG"); p != "" {
		configPath = p
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Initialize storage
	store, err := storage.Open(cfg.Storage.Backend, cfg.GetDataDir(), cfg.Storage.DatabaseFile)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Load the equipment palette
	palette, err := catalog.LoadOrDefault(cfg.Planner.CatalogFile)
	if err != nil {
		fmt.Printf("Failed to load catalog: %v\n", err)
		os.Exit(1)
	}
	registry := catalog.NewRegistry(palette)

	if cfg.Planner.CatalogFile != "" && cfg.Planner.WatchCatalog {
		watcher, err := catalog.Watch(cfg.Planner.CatalogFile, registry, logger)
		if err != nil {
			logger.Warn("catalog hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	// Initialize workspace manager
	manager := planner.NewManager(store, registry, planner.Options{
		AutosaveDelay: cfg.AutosaveDelay(),
		SnapshotKey:   cfg.Storage.SnapshotKey,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background workspace cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := manager.CleanupIdle(cfg.WorkspaceTimeout()); n > 0 {
					logger.Info("evicted idle workspaces", "count", n, "open", manager.Count())
				}
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableRequestLogging: cfg.Advanced.EnableRequestLogging,
		EnableCompression:    cfg.Advanced.EnableCompression,
		CompressionLevel:     cfg.Advanced.CompressionLevel,
		BodyLimit:            cfg.Server.BodyLimit,
		EnableCORS:           cfg.Server.EnableCORS,
		AllowOrigins:         cfg.Server.AllowOrigins,
		RequestTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Manager:            manager,
		Catalog:            registry,
		ExportWidth:        cfg.Export.Width,
		ExportHeight:       cfg.Export.Height,
		FooterText:         cfg.Export.FooterText,
		MaxBackgroundBytes: cfg.MaxBackgroundBytes(),
		Version:            Version,
		Logger:             logger,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Register embedded preview page if available
	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "error", err)
			embeddedMode = false
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	catalogSource := cfg.Planner.CatalogFile
	if catalogSource == "" {
		catalogSource = "built-in"
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Site Map Planner Server                         ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", cfg.Storage.Backend)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Catalog:   %-46s║\n", catalogSource)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	// Write pending autosaves before the store closes
	manager.Close()
}
