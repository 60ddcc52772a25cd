package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTemp(t, "server.toml", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Control.BindAddress == "" {
		t.Fatalf("expected default control bind address")
	}
	if cfg.MapDb.RetryAttempts <= 0 {
		t.Fatalf("expected positive default retry attempts")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTemp(t, "server.toml", `
[control]
bind_address = "127.0.0.1:9001"

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Control.BindAddress != "127.0.0.1:9001" {
		t.Fatalf("bind address not overridden: %+v", cfg.Control)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not overridden: %+v", cfg.Logging)
	}
}

func TestLoadTileFamiliesAndResolve(t *testing.T) {
	path := writeTemp(t, "tile_families.yaml", `
- name: water
  weights:
    water/deep: 2.0
    water/shallow: 1.0
- name: ice
  weights:
    ice/thin: 3.0
`)
	families, err := LoadTileFamilies(path)
	if err != nil {
		t.Fatalf("LoadTileFamilies: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}

	ids := map[string]int32{"water/deep": 1, "water/shallow": 2}
	resolved := Resolve(families, func(name string) (int32, bool) {
		id, ok := ids[name]
		return id, ok
	})
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved families, got %d", len(resolved))
	}
	water := resolved[0]
	if water.Name != "water" {
		t.Fatalf("expected water family first, got %s", water.Name)
	}
	if len(water.Weights) != 2 {
		t.Fatalf("expected water family to resolve both known tile names, got %d", len(water.Weights))
	}
	ice := resolved[1]
	if len(ice.Weights) != 0 {
		t.Fatalf("expected ice family with no known ids to resolve empty, got %d", len(ice.Weights))
	}
}

func TestLoadDrinker(t *testing.T) {
	path := writeTemp(t, "drinker.yaml", `
open_belt_timeout: 3s
sip_timeout: 1s
max_stamina: 10000
stamina_threshold: 9000
liquid_containers:
  - gfx/invobjs/water
contents:
  - name: Water
    action: Drink
    wait_interval: 5s
`)
	cfg, err := LoadDrinker(path)
	if err != nil {
		t.Fatalf("LoadDrinker: %v", err)
	}
	if cfg.MaxStamina != 10000 || cfg.StaminaThreshold != 9000 {
		t.Fatalf("unexpected stamina bounds: %+v", cfg)
	}
	if !cfg.LiquidContainers["gfx/invobjs/water"] {
		t.Fatalf("expected liquid container to be registered")
	}
	if len(cfg.Contents) != 1 || cfg.Contents[0].Name != "Water" {
		t.Fatalf("unexpected contents: %+v", cfg.Contents)
	}
}
