package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gmameta.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.MaxUploadBytes() != 512*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelInfo {
		t.Errorf("Level = %v", lvl)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9090"
db_path: "/var/lib/gmameta/index.db"
roots:
  - /srv/garrysmod/addons
  - /srv/workshop
log_level: debug
trace_sql: true
watch:
  enabled: true
  debounce: 2s
mcp:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:9090" || len(cfg.Roots) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.TraceSQL {
		t.Error("trace_sql should be set")
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.MCP.Enabled {
		t.Error("mcp should be disabled")
	}
	// Unset keys keep their defaults.
	if cfg.MaxUploadMB != 512 {
		t.Errorf("MaxUploadMB = %d", cfg.MaxUploadMB)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level = %v", lvl)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
	if _, err := Load(writeConfig(t, "listen: [unclosed")); err == nil {
		t.Error("bad yaml: expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no db path", func(c *Config) { c.DBPath = "" }},
		{"no listen", func(c *Config) { c.Listen = "" }},
		{"zero upload", func(c *Config) { c.MaxUploadMB = 0 }},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }},
		{"watch without roots", func(c *Config) { c.Watch.Enabled = true }},
		{"empty root", func(c *Config) { c.Roots = []string{""} }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
