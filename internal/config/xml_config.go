// Package config provides XML-based configuration management for the site planner server.
package config

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SitePlanner"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Planner behaviour
	Planner PlannerConfig `xml:"Planner"`

	// Export canvas
	Export ExportConfig `xml:"Export"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig selects where snapshots are kept
type StorageConfig struct {
	DataDirectory string `xml:"DataDirectory"`
	Backend       string `xml:"Backend"`
	DatabaseFile  string `xml:"DatabaseFile"`
	SnapshotKey   string `xml:"SnapshotKey"`
}

// PlannerConfig contains workspace and catalog settings
type PlannerConfig struct {
	CatalogFile             string `xml:"CatalogFile"`
	WatchCatalog            bool   `xml:"WatchCatalog"`
	AutosaveDelayMs         int    `xml:"AutosaveDelayMs"`
	WorkspaceTimeoutMinutes int    `xml:"WorkspaceTimeoutMinutes"`
	CleanupIntervalMinutes  int    `xml:"CleanupIntervalMinutes"`
	MaxBackgroundSize       string `xml:"MaxBackgroundSize"`
}

// ExportConfig contains export canvas settings
type ExportConfig struct {
	Width      int    `xml:"Width"`
	Height     int    `xml:"Height"`
	FooterText string `xml:"FooterText"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	EnableCompression    bool   `xml:"EnableCompression"`
	CompressionLevel     int    `xml:"CompressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "25MB",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			Backend:       "file",
			DatabaseFile:  "siteplanner.db",
			SnapshotKey:   "siteMapPlanner",
		},
		Planner: PlannerConfig{
			CatalogFile:             "",
			WatchCatalog:            true,
			AutosaveDelayMs:         500,
			WorkspaceTimeoutMinutes: 30,
			CleanupIntervalMinutes:  5,
			MaxBackgroundSize:       "10MB",
		},
		Export: ExportConfig{
			Width:      1200,
			Height:     800,
			FooterText: "Generated by Coastal Clean Rentals Site Map Planner",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	var config *AppConfig

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config = DefaultConfig()
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Site Map Planner Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *AppConfig) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "file", "duckdb", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend %q (want file, duckdb or sqlite)", c.Storage.Backend)
	}
	if _, err := humanize.ParseBytes(c.Server.BodyLimit); err != nil {
		return fmt.Errorf("invalid BodyLimit %q: %w", c.Server.BodyLimit, err)
	}
	if _, err := humanize.ParseBytes(c.Planner.MaxBackgroundSize); err != nil {
		return fmt.Errorf("invalid MaxBackgroundSize %q: %w", c.Planner.MaxBackgroundSize, err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if c.Planner.CatalogFile != "" && !filepath.IsAbs(c.Planner.CatalogFile) {
		c.Planner.CatalogFile = filepath.Join(configDir, c.Planner.CatalogFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// MaxBackgroundBytes returns the upload limit for background images.
func (c *AppConfig) MaxBackgroundBytes() int64 {
	n, err := humanize.ParseBytes(c.Planner.MaxBackgroundSize)
	if err != nil || n == 0 {
		return 10 << 20
	}
	return int64(n)
}

// AutosaveDelay returns the autosave debounce.
func (c *AppConfig) AutosaveDelay() time.Duration {
	return time.Duration(c.Planner.AutosaveDelayMs) * time.Millisecond
}

// WorkspaceTimeout returns how long an idle workspace stays in memory.
func (c *AppConfig) WorkspaceTimeout() time.Duration {
	return time.Duration(c.Planner.WorkspaceTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the period of the eviction ticker.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Planner.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Planner.CleanupIntervalMinutes) * time.Minute
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Advanced.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.DataDirectory, err)
	}
	return nil
}
