package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("expected missing config to be ignored, got %v", err)
	}
	if cfg.Run.Path != nil || cfg.Keys != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[run]
path = "runs/celeste.yaml"
autosave = false

[default_run]
game = "Celeste"
segments = ["1A", "2A"]

[timer]
comparison = "Best Segments"

[keys]
split = ["enter"]

[log]
level = "debug"

[archive]
enabled = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Run.Path != "runs/celeste.yaml" || *cfg.Run.Autosave {
		t.Fatalf("unexpected run config: %+v", cfg.Run)
	}
	if *cfg.DefaultRun.Game != "Celeste" || cfg.DefaultRun.Category != nil || len(cfg.DefaultRun.Segments) != 2 {
		t.Fatalf("unexpected default run: %+v", cfg.DefaultRun)
	}
	if *cfg.Timer.Comparison != "Best Segments" || *cfg.Log.Level != "debug" || *cfg.Archive.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := cfg.Keys["split"]; len(got) != 1 || got[0] != "enter" {
		t.Fatalf("unexpected keys: %v", cfg.Keys)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[timer]\ncomparision = \"None\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "comparision") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("template must decode: %v", err)
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "tsplit", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "tsplit", "archive.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "tsplit", "tsplit.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}
