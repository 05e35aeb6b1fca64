// Package config provides YAML-based configuration management for air-gapped deployment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Flight data configuration
	Data DataConfig `yaml:"data"`

	// Playback configuration
	Playback PlaybackConfig `yaml:"playback"`

	// Advanced options
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int    `yaml:"port"`
	BindAddress       string `yaml:"bind_address"`
	EnableCORS        bool   `yaml:"enable_cors"`
	AllowOrigins      string `yaml:"allow_origins"`
	ReadTimeout       int    `yaml:"read_timeout_seconds"`
	WriteTimeout      int    `yaml:"write_timeout_seconds"`
	IdleTimeout       int    `yaml:"idle_timeout_seconds"`
	BodyLimit         string `yaml:"body_limit"`
	EnableCompression bool   `yaml:"enable_compression"`
	CompressionLevel  int    `yaml:"compression_level"`
}

// DataConfig contains flight data settings
type DataConfig struct {
	DataDirectory      string `yaml:"data_directory"`
	MarkerRulesFile    string `yaml:"marker_rules_file"`
	WatchDataDirectory bool   `yaml:"watch_data_directory"`
	FlightCacheSize    int    `yaml:"flight_cache_size"`
}

// PlaybackConfig contains playback session settings
type PlaybackConfig struct {
	TickIntervalMs         int `yaml:"tick_interval_ms"`
	SessionTimeoutMinutes  int `yaml:"session_timeout_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `yaml:"log_level"`
	LogDirectory            string `yaml:"log_directory"`
	EnableRequestLogging    bool   `yaml:"enable_request_logging"`
	EnableMetrics           bool   `yaml:"enable_metrics"`
	WebSocketMaxMessageSize int    `yaml:"websocket_max_message_size_kb"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              8800,
			BindAddress:       "0.0.0.0",
			EnableCORS:        true,
			AllowOrigins:      "*",
			ReadTimeout:       30,
			WriteTimeout:      30,
			IdleTimeout:       120,
			BodyLimit:         "16M",
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Data: DataConfig{
			DataDirectory:      "./processed_data",
			MarkerRulesFile:    "",
			WatchDataDirectory: true,
			FlightCacheSize:    8,
		},
		Playback: PlaybackConfig{
			TickIntervalMs:         50,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			LogDirectory:            "./logs",
			EnableRequestLogging:    true,
			EnableMetrics:           true,
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Cloud Seeding Flight Visualizer Configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Data.DataDirectory = dataDir
	}

	// LOG_LEVEL override
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Data.DataDirectory) {
		c.Data.DataDirectory = filepath.Join(configDir, c.Data.DataDirectory)
	}
	if !filepath.IsAbs(c.Advanced.LogDirectory) {
		c.Advanced.LogDirectory = filepath.Join(configDir, c.Advanced.LogDirectory)
	}
	if c.Data.MarkerRulesFile != "" && !filepath.IsAbs(c.Data.MarkerRulesFile) {
		c.Data.MarkerRulesFile = filepath.Join(configDir, c.Data.MarkerRulesFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Data.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// TickInterval returns the playback tick interval as a duration
func (c *AppConfig) TickInterval() time.Duration {
	if c.Playback.TickIntervalMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.Playback.TickIntervalMs) * time.Millisecond
}

// SessionTimeout returns the idle session timeout as a duration
func (c *AppConfig) SessionTimeout() time.Duration {
	if c.Playback.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Playback.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the session cleanup cadence as a duration
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Playback.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Playback.CleanupIntervalMinutes) * time.Minute
}

// WSMaxMessageBytes returns the WebSocket read limit in bytes
func (c *AppConfig) WSMaxMessageBytes() int64 {
	if c.Advanced.WebSocketMaxMessageSize <= 0 {
		return 64 * 1024
	}
	return int64(c.Advanced.WebSocketMaxMessageSize) * 1024
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Data.DataDirectory,
		c.Advanced.LogDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
