// Package forager defines the per-actor resource ledger and the
// Idle/Foraging state machine that governs it.
// This package is PURE and must NOT import any infrastructure packages
// (network, events, platform).
package forager

import (
	"errors"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/domain/resource"
)

// Status is the forager's current state machine state.
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusForaging Status = "FORAGING"
)

// Consumption schedule. Each resource drains by ConsumptionRate whenever
// the tick counter is a multiple of its interval. The three countdowns
// are evaluated on every tick and are mutually independent.
const (
	FoodInterval   = 5
	WaterInterval  = 10
	EnergyInterval = 15

	ConsumptionRate = 1
)

// ForagingDuration is how many ticks a foraging trip takes. When the
// countdown reaches zero the record transitions back to Idle and the
// caller is told which location just completed.
const ForagingDuration = 5

// StartingLevel is the initial value of every resource.
const StartingLevel = 100

var (
	// ErrAlreadyForaging rejects a foraging command while a trip is in
	// progress, regardless of the requested location.
	ErrAlreadyForaging = errors.New("already foraging")

	// ErrInvalidLocation rejects a foraging command naming a location
	// outside the fixed set.
	ErrInvalidLocation = errors.New("invalid foraging location")

	// ErrInsufficientItems rejects an inventory removal that would go
	// below zero. The record is left unchanged.
	ErrInsufficientItems = errors.New("insufficient items")
)

// Record is the complete state of one forager. A Record is owned
// exclusively by its actor and must never be mutated concurrently.
type Record struct {
	ID string `json:"id"`

	Status           Status      `json:"status"`
	ForagingLocation location.ID `json:"foraging_location,omitempty"` // empty while Idle
	RemainingTicks   int         `json:"remaining_ticks"`             // >0 only while Foraging

	Resources map[resource.Kind]int `json:"resources"` // never negative
	Inventory map[item.Kind]int     `json:"inventory"` // opened lazily per kind

	TickCounter int64     `json:"tick_counter"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewRecord creates a fresh Idle record with full resources.
func NewRecord(id string) *Record {
	return &Record{
		ID:     id,
		Status: StatusIdle,
		Resources: map[resource.Kind]int{
			resource.Food:   StartingLevel,
			resource.Water:  StartingLevel,
			resource.Energy: StartingLevel,
		},
		Inventory:   make(map[item.Kind]int),
		TickCounter: 0,
		LastUpdated: time.Now(),
	}
}

// BeginForaging starts a foraging trip at loc. Only an Idle forager may
// start a trip, and only at a location from the fixed set.
func (r *Record) BeginForaging(loc location.ID) error {
	if r.Status == StatusForaging {
		return ErrAlreadyForaging
	}
	if !location.IsValid(loc) {
		return ErrInvalidLocation
	}

	r.Status = StatusForaging
	r.ForagingLocation = loc
	r.RemainingTicks = ForagingDuration
	r.LastUpdated = time.Now()
	return nil
}

// ProcessTick advances the record by one tick: resource consumption
// first, then the foraging countdown. When a trip completes this tick,
// the completed location is returned with finished=true so the owning
// actor can request a harvest.
func (r *Record) ProcessTick() (completed location.ID, finished bool) {
	r.TickCounter++

	// Independent consumption countdowns; they touch disjoint keys, so
	// evaluation order does not matter.
	if r.TickCounter%FoodInterval == 0 {
		r.consume(resource.Food, ConsumptionRate)
	}
	if r.TickCounter%WaterInterval == 0 {
		r.consume(resource.Water, ConsumptionRate)
	}
	if r.TickCounter%EnergyInterval == 0 {
		r.consume(resource.Energy, ConsumptionRate)
	}

	if r.Status == StatusForaging {
		r.RemainingTicks--
		if r.RemainingTicks <= 0 {
			completed = r.ForagingLocation
			finished = true
			r.Status = StatusIdle
			r.ForagingLocation = ""
			r.RemainingTicks = 0
		}
	}

	r.LastUpdated = time.Now()
	return completed, finished
}

// ApplyDeltas applies a per-kind resource delta, clamping each resulting
// value at zero. Unknown kinds are ignored. Never errors.
func (r *Record) ApplyDeltas(deltas map[resource.Kind]int) {
	for kind, delta := range deltas {
		if !resource.IsValid(kind) {
			continue
		}
		r.Resources[kind] += delta
		if r.Resources[kind] < 0 {
			r.Resources[kind] = 0
		}
	}
	r.LastUpdated = time.Now()
}

// AddItem increments the inventory count for kind. Non-positive amounts
// are ignored.
func (r *Record) AddItem(kind item.Kind, amount int) {
	if amount <= 0 {
		return
	}
	if r.Inventory == nil {
		r.Inventory = make(map[item.Kind]int)
	}
	r.Inventory[kind] += amount
	r.LastUpdated = time.Now()
}

// RemoveItem decrements the inventory count for kind, failing with
// ErrInsufficientItems (and leaving the record unchanged) when the
// forager does not hold enough.
func (r *Record) RemoveItem(kind item.Kind, amount int) error {
	if amount <= 0 {
		return nil
	}
	if r.Inventory[kind] < amount {
		return ErrInsufficientItems
	}
	r.Inventory[kind] -= amount
	if r.Inventory[kind] == 0 {
		delete(r.Inventory, kind)
	}
	r.LastUpdated = time.Now()
	return nil
}

// Clone returns a deep copy of the record, safe to hand to readers while
// the actor keeps mutating the original.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Resources = make(map[resource.Kind]int, len(r.Resources))
	for k, v := range r.Resources {
		cp.Resources[k] = v
	}
	cp.Inventory = make(map[item.Kind]int, len(r.Inventory))
	for k, v := range r.Inventory {
		cp.Inventory[k] = v
	}
	return &cp
}

func (r *Record) consume(kind resource.Kind, rate int) {
	r.Resources[kind] -= rate
	if r.Resources[kind] < 0 {
		r.Resources[kind] = 0
	}
}
