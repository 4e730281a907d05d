// Package config provides XML-based configuration with environment overrides.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. FLIGHTLOG_SERVER_PORT.
const EnvPrefix = "FLIGHTLOG"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"FlightLogConverter" ignored:"true"`

	// Server configuration
	Server ServerConfig `xml:"Server" envconfig:"SERVER"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage" envconfig:"STORAGE"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing" envconfig:"PROCESSING"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced" envconfig:"ADVANCED"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port" envconfig:"PORT"`
	BindAddress  string `xml:"BindAddress" envconfig:"BIND_ADDRESS"`
	EnableCORS   bool   `xml:"EnableCORS" envconfig:"ENABLE_CORS"`
	AllowOrigins string `xml:"AllowOrigins" envconfig:"ALLOW_ORIGINS"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds" envconfig:"READ_TIMEOUT"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds" envconfig:"IDLE_TIMEOUT"`
	BodyLimit    string `xml:"BodyLimit" envconfig:"BODY_LIMIT"`
}

// StorageConfig contains file locations
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory" envconfig:"DATA_DIR"`
	OutputDirectory   string `xml:"OutputDirectory" envconfig:"OUTPUT_DIR"`
	CacheDirectory    string `xml:"CacheDirectory" envconfig:"CACHE_DIR"`
	NameRegistryFile  string `xml:"NameRegistryFile" envconfig:"NAME_REGISTRY"`
	SourceListFile    string `xml:"SourceListFile" envconfig:"SOURCE_LIST"`
	PlotCatalogFile   string `xml:"PlotCatalogFile" envconfig:"PLOT_CATALOG"`
	EnablePersistence bool   `xml:"EnablePersistence" envconfig:"ENABLE_PERSISTENCE"`
}

// ProcessingConfig contains conversion settings
type ProcessingConfig struct {
	MaxSessions            int  `xml:"MaxSessions" envconfig:"MAX_SESSIONS"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes" envconfig:"SESSION_TIMEOUT"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes" envconfig:"CLEANUP_INTERVAL"`
	EnableDuckDBExport     bool `xml:"EnableDuckDBExport" envconfig:"DUCKDB_EXPORT"`
	SkipDuplicateColumns   bool `xml:"SkipDuplicateAuxColumns" envconfig:"SKIP_DUPLICATE_COLUMNS"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel" envconfig:"LOG_LEVEL"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging" envconfig:"REQUEST_LOGGING"`
	EnableMetrics        bool   `xml:"EnableMetrics" envconfig:"ENABLE_METRICS"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			OutputDirectory:   "./data/output",
			CacheDirectory:    "./data/cache",
			NameRegistryFile:  "./registry/names.csv",
			SourceListFile:    "./registry/sources.txt",
			PlotCatalogFile:   "./registry/plots.yaml",
			EnablePersistence: true,
		},
		Processing: ProcessingConfig{
			MaxSessions:            10,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			EnableDuckDBExport:     false,
			SkipDuplicateColumns:   true,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			EnableMetrics:        true,
		},
	}
}

// LoadConfig loads configuration from an XML file, creating it with the
// defaults when it does not exist. Environment overrides are applied on
// top and relative paths resolve against the file's directory.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	config.resolvePaths(filepath.Dir(configPath))
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	header := []byte(xml.Header + "\n<!-- Flight Log Converter Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides lets FLIGHTLOG_* variables override file values.
// Unset variables leave the file value alone.
func (c *AppConfig) applyEnvironmentOverrides() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.OutputDirectory,
		&c.Storage.CacheDirectory,
		&c.Storage.NameRegistryFile,
		&c.Storage.SourceListFile,
		&c.Storage.PlotCatalogFile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.OutputDirectory,
		c.Storage.CacheDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
