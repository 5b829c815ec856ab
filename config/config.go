// Package config loads the gmameta service configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration of the indexer and its HTTP API.
type Config struct {
	Listen      string      `yaml:"listen"`
	DBPath      string      `yaml:"db_path"`
	Roots       []string    `yaml:"roots"`
	MaxUploadMB int         `yaml:"max_upload_mb"`
	LogLevel    string      `yaml:"log_level"`
	TraceSQL    bool        `yaml:"trace_sql"`
	Watch       WatchConfig `yaml:"watch"`
	MCP         MCPConfig   `yaml:"mcp"`
}

// WatchConfig configures re-indexing on filesystem events.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// MCPConfig configures the MCP endpoint of the HTTP server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:      ":8093",
		DBPath:      "gmameta.db",
		MaxUploadMB: 512,
		LogLevel:    "info",
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		MCP: MCPConfig{Enabled: true},
	}
}

// Load reads a YAML config file. Returns DefaultConfig merged with the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0")
	}
	if c.Watch.Enabled && len(c.Roots) == 0 {
		return fmt.Errorf("watch.enabled requires at least one root")
	}
	for i, r := range c.Roots {
		if r == "" {
			return fmt.Errorf("roots[%d]: empty path", i)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) * 1024 * 1024 }
