// Package storage provides the persistence layer for the colony server.
// This package implements the repository pattern to keep the domain pure.
// The simulation never waits on it; writes arrive asynchronously and a
// storage outage only costs durability, not correctness.
package storage

import (
	"context"
	"time"
)

// EventRecord mirrors the in-memory event structure for persistence.
// The domain packages should NOT import this; use interfaces instead.
type EventRecord struct {
	ID        string                 `json:"id" db:"id"`
	ColonyID  string                 `json:"colony_id" db:"colony_id"`
	Seq       int64                  `json:"seq" db:"seq"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Tick      int64                  `json:"tick" db:"tick"`
}

// EventRepository defines the interface for durable event history.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event EventRecord) error

	// GetByColonyID retrieves all events for a colony, oldest first.
	GetByColonyID(ctx context.Context, colonyID string) ([]EventRecord, error)

	// GetByActorID retrieves all events performed by one forager.
	GetByActorID(ctx context.Context, colonyID, actorID string) ([]EventRecord, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, colonyID, eventType string) ([]EventRecord, error)
}

// ForagerSnapshot is the persisted state of one forager for quick
// reads and boot-time reconstruction.
type ForagerSnapshot struct {
	ForagerID   string            `json:"forager_id" db:"forager_id"`
	ColonyID    string            `json:"colony_id" db:"colony_id"`
	Status      string            `json:"status" db:"status"`
	Location    string            `json:"location" db:"location"`
	Resources   map[string]int    `json:"resources" db:"resources"`
	Inventory   map[string]int    `json:"inventory" db:"inventory"`
	TickCounter int64             `json:"tick_counter" db:"tick_counter"`
	LastUpdated time.Time         `json:"last_updated" db:"last_updated"`
}

// SnapshotRepository defines the interface for forager state snapshots.
type SnapshotRepository interface {
	// Upsert updates or inserts a forager snapshot.
	Upsert(ctx context.Context, snapshot ForagerSnapshot) error

	// GetByForagerID retrieves one forager's snapshot, nil if absent.
	GetByForagerID(ctx context.Context, foragerID string) (*ForagerSnapshot, error)

	// GetByColonyID retrieves all snapshots for a colony.
	GetByColonyID(ctx context.Context, colonyID string) ([]ForagerSnapshot, error)

	// Delete removes a snapshot for a terminated forager.
	Delete(ctx context.Context, foragerID string) error
}
