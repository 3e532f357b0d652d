// Package config loads the server configuration from an optional YAML
// file, filling in defaults for everything left unset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openwilds/forage-colony/internal/domain/location"
)

// Config holds every tunable of the colony server.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	ColonyID   string `yaml:"colony_id"`
	DBPath     string `yaml:"db_path"`

	// TickInterval is the scheduler cadence. The scheduler re-arms after
	// each fan-out, so this is a floor, not a wall-clock guarantee.
	TickInterval time.Duration `yaml:"tick_interval"`

	// SeedForagers is how many demo foragers to create when the database
	// holds none.
	SeedForagers int `yaml:"seed_foragers"`

	// CommandCooldown is the per-connection minimum spacing between
	// WebSocket commands.
	CommandCooldown time.Duration `yaml:"command_cooldown"`

	// EventLogCapacity bounds the in-memory broadcast ledger.
	EventLogCapacity int `yaml:"event_log_capacity"`

	Buffers BufferConfig `yaml:"buffers"`

	// Locations overrides the built-in location registry per entry.
	// Unlisted locations keep their reference parameters.
	Locations []LocationOverride `yaml:"locations,omitempty"`
}

// BufferConfig holds channel buffer sizes. Larger buffers trade memory
// for fewer dropped deliveries under burst load.
type BufferConfig struct {
	ActorMailbox int `yaml:"actor_mailbox"`
	HubBroadcast int `yaml:"hub_broadcast"`
	ClientSend   int `yaml:"client_send"`
}

// LocationOverride adjusts one location's production parameters.
type LocationOverride struct {
	ID               string `yaml:"id"`
	RegrowthInterval int    `yaml:"regrowth_interval,omitempty"`
	RegrowthMin      int    `yaml:"regrowth_min,omitempty"`
	RegrowthMax      int    `yaml:"regrowth_max,omitempty"`
	HarvestMin       int    `yaml:"harvest_min,omitempty"`
	HarvestMax       int    `yaml:"harvest_max,omitempty"`
}

func defaults() Config {
	return Config{
		ListenAddr:       ":8080",
		ColonyID:         "COLONY_1",
		DBPath:           "colony.db",
		TickInterval:     5 * time.Second,
		SeedForagers:     6,
		CommandCooldown:  time.Second,
		EventLogCapacity: 1024,
		Buffers: BufferConfig{
			ActorMailbox: 16,
			HubBroadcast: 256,
			ClientSend:   64,
		},
	}
}

// Load reads the config at path. An empty path yields pure defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	d := defaults()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.ColonyID == "" {
		c.ColonyID = d.ColonyID
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.CommandCooldown <= 0 {
		c.CommandCooldown = d.CommandCooldown
	}
	if c.EventLogCapacity <= 0 {
		c.EventLogCapacity = d.EventLogCapacity
	}
	if c.Buffers.ActorMailbox <= 0 {
		c.Buffers.ActorMailbox = d.Buffers.ActorMailbox
	}
	if c.Buffers.HubBroadcast <= 0 {
		c.Buffers.HubBroadcast = d.Buffers.HubBroadcast
	}
	if c.Buffers.ClientSend <= 0 {
		c.Buffers.ClientSend = d.Buffers.ClientSend
	}
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	if c.SeedForagers < 0 {
		return fmt.Errorf("seed_foragers must not be negative, got %d", c.SeedForagers)
	}
	for _, ov := range c.Locations {
		id := location.ID(ov.ID)
		if !location.IsValid(id) {
			return fmt.Errorf("locations: unknown location %q", ov.ID)
		}
		if ov.RegrowthMax != 0 && ov.RegrowthMax < ov.RegrowthMin {
			return fmt.Errorf("locations: %s regrowth range inverted", ov.ID)
		}
		if ov.HarvestMax != 0 && ov.HarvestMax < ov.HarvestMin {
			return fmt.Errorf("locations: %s harvest range inverted", ov.ID)
		}
	}
	return nil
}

// LocationSpecs returns the effective spec per location: the reference
// registry with any configured overrides applied on top.
func (c *Config) LocationSpecs() map[location.ID]location.Spec {
	specs := make(map[location.ID]location.Spec, len(location.Registry))
	for id, spec := range location.Registry {
		specs[id] = spec
	}

	for _, ov := range c.Locations {
		id := location.ID(ov.ID)
		spec, ok := specs[id]
		if !ok {
			continue
		}
		if ov.RegrowthInterval > 0 {
			spec.RegrowthInterval = ov.RegrowthInterval
		}
		if ov.RegrowthMin > 0 {
			spec.RegrowthMin = ov.RegrowthMin
		}
		if ov.RegrowthMax > 0 {
			spec.RegrowthMax = ov.RegrowthMax
		}
		if ov.HarvestMin > 0 {
			spec.HarvestMin = ov.HarvestMin
		}
		if ov.HarvestMax > 0 {
			spec.HarvestMax = ov.HarvestMax
		}
		specs[id] = spec
	}
	return specs
}
