// Package storage - reconstructor.go
// Rebuilds forager records from persisted snapshots at boot, so a
// restarted server resumes roughly where the last run left off.
package storage

import (
	"context"
	"fmt"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/domain/resource"
)

// Reconstructor turns persisted snapshots back into live records.
type Reconstructor struct {
	snapshots SnapshotRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(snapshots SnapshotRepository) *Reconstructor {
	return &Reconstructor{snapshots: snapshots}
}

// RebuildColony loads every persisted forager of a colony as a fresh
// record. A trip that was in flight when the snapshot was written is
// restarted from its full duration rather than resumed.
func (r *Reconstructor) RebuildColony(ctx context.Context, colonyID string) ([]*forager.Record, error) {
	snaps, err := r.snapshots.GetByColonyID(ctx, colonyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load colony snapshots: %w", err)
	}

	records := make([]*forager.Record, 0, len(snaps))
	for _, snap := range snaps {
		records = append(records, recordFromSnapshot(snap))
	}
	return records, nil
}

// SnapshotFromRecord converts a live record into its persisted form.
func SnapshotFromRecord(colonyID string, rec *forager.Record) ForagerSnapshot {
	resources := make(map[string]int, len(rec.Resources))
	for k, v := range rec.Resources {
		resources[string(k)] = v
	}
	inventory := make(map[string]int, len(rec.Inventory))
	for k, v := range rec.Inventory {
		inventory[string(k)] = v
	}
	return ForagerSnapshot{
		ForagerID:   rec.ID,
		ColonyID:    colonyID,
		Status:      string(rec.Status),
		Location:    string(rec.ForagingLocation),
		Resources:   resources,
		Inventory:   inventory,
		TickCounter: rec.TickCounter,
		LastUpdated: rec.LastUpdated,
	}
}

func recordFromSnapshot(snap ForagerSnapshot) *forager.Record {
	rec := forager.NewRecord(snap.ForagerID)
	rec.TickCounter = snap.TickCounter
	rec.LastUpdated = snap.LastUpdated

	for k, v := range snap.Resources {
		kind := resource.Kind(k)
		if resource.IsValid(kind) && v >= 0 {
			rec.Resources[kind] = v
		}
	}
	for k, v := range snap.Inventory {
		rec.AddItem(item.Kind(k), v)
	}

	if snap.Status == string(forager.StatusForaging) && location.IsValid(location.ID(snap.Location)) {
		_ = rec.BeginForaging(location.ID(snap.Location))
	}
	return rec
}
