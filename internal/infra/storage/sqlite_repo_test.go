package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/domain/resource"
)

func openTestDB(t *testing.T) (*SQLiteEventRepository, *SQLiteSnapshotRepository) {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "colony.db"))
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteEventRepository(db), NewSQLiteSnapshotRepository(db)
}

func TestEventAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	eventRepo, _ := openTestDB(t)

	records := []EventRecord{
		{ID: "e1", ColonyID: "COLONY_1", Seq: 1, Timestamp: time.Now(), EventType: "FORAGE_STARTED", ActorID: "a", Payload: map[string]interface{}{"location": "forest"}},
		{ID: "e2", ColonyID: "COLONY_1", Seq: 2, Timestamp: time.Now(), EventType: "HARVEST", ActorID: "a", Payload: map[string]interface{}{"amount": 3.0}},
		{ID: "e3", ColonyID: "COLONY_1", Seq: 3, Timestamp: time.Now(), EventType: "FORAGE_STARTED", ActorID: "b", Payload: map[string]interface{}{"location": "river"}},
	}
	for _, rec := range records {
		if err := eventRepo.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	all, err := eventRepo.GetByColonyID(ctx, "COLONY_1")
	if err != nil {
		t.Fatalf("GetByColonyID failed: %v", err)
	}
	if len(all) != 3 || all[0].Seq != 1 || all[2].Seq != 3 {
		t.Errorf("Expected 3 events in seq order, got %+v", all)
	}

	byActor, err := eventRepo.GetByActorID(ctx, "COLONY_1", "a")
	if err != nil {
		t.Fatalf("GetByActorID failed: %v", err)
	}
	if len(byActor) != 2 {
		t.Errorf("Expected 2 events for actor a, got %d", len(byActor))
	}

	byType, err := eventRepo.GetByEventType(ctx, "COLONY_1", "HARVEST")
	if err != nil {
		t.Fatalf("GetByEventType failed: %v", err)
	}
	if len(byType) != 1 || byType[0].Payload["amount"] != 3.0 {
		t.Errorf("Expected one HARVEST with amount 3, got %+v", byType)
	}
}

func TestSnapshotUpsertAndReload(t *testing.T) {
	ctx := context.Background()
	_, snapRepo := openTestDB(t)

	snap := ForagerSnapshot{
		ForagerID:   "forager-1",
		ColonyID:    "COLONY_1",
		Status:      "IDLE",
		Resources:   map[string]int{"food": 90, "water": 100, "energy": 95},
		Inventory:   map[string]int{"BERRIES": 2},
		TickCounter: 42,
	}
	if err := snapRepo.Upsert(ctx, snap); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Upsert again with changed values; must replace, not duplicate.
	snap.Resources["food"] = 85
	snap.TickCounter = 50
	if err := snapRepo.Upsert(ctx, snap); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := snapRepo.GetByForagerID(ctx, "forager-1")
	if err != nil {
		t.Fatalf("GetByForagerID failed: %v", err)
	}
	if got == nil || got.Resources["food"] != 85 || got.TickCounter != 50 {
		t.Errorf("Expected updated snapshot, got %+v", got)
	}

	all, err := snapRepo.GetByColonyID(ctx, "COLONY_1")
	if err != nil {
		t.Fatalf("GetByColonyID failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 snapshot after upserts, got %d", len(all))
	}

	missing, err := snapRepo.GetByForagerID(ctx, "ghost")
	if err != nil || missing != nil {
		t.Errorf("Expected nil,nil for missing snapshot, got %+v, %v", missing, err)
	}
}

func TestSnapshotDelete(t *testing.T) {
	ctx := context.Background()
	_, snapRepo := openTestDB(t)

	snapRepo.Upsert(ctx, ForagerSnapshot{
		ForagerID: "forager-1", ColonyID: "COLONY_1", Status: "IDLE",
		Resources: map[string]int{}, Inventory: map[string]int{},
	})
	if err := snapRepo.Delete(ctx, "forager-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, _ := snapRepo.GetByForagerID(ctx, "forager-1")
	if got != nil {
		t.Errorf("Expected snapshot gone after delete")
	}
}

func TestReconstructorRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, snapRepo := openTestDB(t)

	rec := forager.NewRecord("forager-1")
	rec.ApplyDeltas(map[resource.Kind]int{resource.Food: -20})
	rec.AddItem(item.KindWaterskin, 3)
	rec.TickCounter = 17
	if err := rec.BeginForaging(location.River); err != nil {
		t.Fatalf("BeginForaging failed: %v", err)
	}

	if err := snapRepo.Upsert(ctx, SnapshotFromRecord("COLONY_1", rec)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rebuilt, err := NewReconstructor(snapRepo).RebuildColony(ctx, "COLONY_1")
	if err != nil {
		t.Fatalf("RebuildColony failed: %v", err)
	}
	if len(rebuilt) != 1 {
		t.Fatalf("Expected 1 rebuilt record, got %d", len(rebuilt))
	}

	got := rebuilt[0]
	if got.Resources[resource.Food] != 80 {
		t.Errorf("Expected food 80, got %d", got.Resources[resource.Food])
	}
	if got.Inventory[item.KindWaterskin] != 3 {
		t.Errorf("Expected 3 waterskins, got %d", got.Inventory[item.KindWaterskin])
	}
	if got.TickCounter != 17 {
		t.Errorf("Expected tick counter 17, got %d", got.TickCounter)
	}
	// The in-flight trip restarts at full duration.
	if got.Status != forager.StatusForaging || got.ForagingLocation != location.River {
		t.Errorf("Expected restarted trip at river, got %s at %s", got.Status, got.ForagingLocation)
	}
	if got.RemainingTicks != forager.ForagingDuration {
		t.Errorf("Expected full trip duration, got %d", got.RemainingTicks)
	}
}
