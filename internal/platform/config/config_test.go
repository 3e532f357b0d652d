package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/location"
)

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.TickInterval != 5*time.Second {
		t.Errorf("Expected default tick interval 5s, got %v", cfg.TickInterval)
	}
	if cfg.Buffers.ActorMailbox <= 0 {
		t.Errorf("Expected positive default mailbox buffer, got %d", cfg.Buffers.ActorMailbox)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "colony.yaml")
	data := `
listen_addr: ":9090"
tick_interval: 100ms
locations:
  - id: forest
    regrowth_interval: 3
    harvest_min: 2
    harvest_max: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("Expected listen addr :9090, got %s", cfg.ListenAddr)
	}
	if cfg.TickInterval != 100*time.Millisecond {
		t.Errorf("Expected 100ms tick interval, got %v", cfg.TickInterval)
	}

	specs := cfg.LocationSpecs()
	forest := specs[location.Forest]
	if forest.RegrowthInterval != 3 {
		t.Errorf("Expected overridden regrowth interval 3, got %d", forest.RegrowthInterval)
	}
	if forest.HarvestMin != 2 || forest.HarvestMax != 2 {
		t.Errorf("Expected pinned harvest range [2,2], got [%d,%d]", forest.HarvestMin, forest.HarvestMax)
	}
	// Unlisted locations keep reference values.
	if specs[location.Cave] != location.Registry[location.Cave] {
		t.Errorf("Cave spec changed without an override")
	}
}

func TestLoadRejectsUnknownLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "colony.yaml")
	data := "locations:\n  - id: volcano\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("Expected error for unknown location override")
	}
}
