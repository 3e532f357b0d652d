package forager

import (
	"errors"
	"testing"

	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/domain/resource"
)

func TestNewRecordDefaults(t *testing.T) {
	r := NewRecord("F1")

	if r.Status != StatusIdle {
		t.Errorf("Expected fresh record to be Idle, got %s", r.Status)
	}
	for _, kind := range resource.Kinds {
		if r.Resources[kind] != StartingLevel {
			t.Errorf("Expected %s to start at %d, got %d", kind, StartingLevel, r.Resources[kind])
		}
	}
	if len(r.Inventory) != 0 {
		t.Errorf("Expected empty inventory, got %v", r.Inventory)
	}
	if r.TickCounter != 0 {
		t.Errorf("Expected tick counter 0, got %d", r.TickCounter)
	}
}

func TestConsumptionSchedule(t *testing.T) {
	// Food drains every 5 ticks, water every 10, energy every 15,
	// each independently of the others.
	cases := []struct {
		ticks       int64
		food, water int
		energy      int
	}{
		{ticks: 4, food: 100, water: 100, energy: 100},
		{ticks: 5, food: 99, water: 100, energy: 100},
		{ticks: 10, food: 98, water: 99, energy: 100},
		{ticks: 15, food: 97, water: 99, energy: 99},
		{ticks: 30, food: 94, water: 97, energy: 98},
		{ticks: 150, food: 70, water: 85, energy: 90},
	}

	for _, tc := range cases {
		r := NewRecord("F1")
		for i := int64(0); i < tc.ticks; i++ {
			r.ProcessTick()
		}
		if r.Resources[resource.Food] != tc.food {
			t.Errorf("After %d ticks expected food %d, got %d", tc.ticks, tc.food, r.Resources[resource.Food])
		}
		if r.Resources[resource.Water] != tc.water {
			t.Errorf("After %d ticks expected water %d, got %d", tc.ticks, tc.water, r.Resources[resource.Water])
		}
		if r.Resources[resource.Energy] != tc.energy {
			t.Errorf("After %d ticks expected energy %d, got %d", tc.ticks, tc.energy, r.Resources[resource.Energy])
		}
		if r.TickCounter != tc.ticks {
			t.Errorf("Expected tick counter %d, got %d", tc.ticks, r.TickCounter)
		}
	}
}

func TestConsumptionClampsAtZero(t *testing.T) {
	r := NewRecord("F1")
	r.Resources[resource.Food] = 1

	// Two food consumption events; the second would go negative.
	for i := 0; i < 10; i++ {
		r.ProcessTick()
	}

	if r.Resources[resource.Food] != 0 {
		t.Errorf("Expected food clamped at 0, got %d", r.Resources[resource.Food])
	}
}

func TestBeginForaging(t *testing.T) {
	r := NewRecord("F1")

	if err := r.BeginForaging(location.Forest); err != nil {
		t.Fatalf("BeginForaging(forest) failed: %v", err)
	}
	if r.Status != StatusForaging {
		t.Errorf("Expected status Foraging, got %s", r.Status)
	}
	if r.ForagingLocation != location.Forest {
		t.Errorf("Expected location forest, got %s", r.ForagingLocation)
	}
	if r.RemainingTicks != ForagingDuration {
		t.Errorf("Expected remaining %d, got %d", ForagingDuration, r.RemainingTicks)
	}
}

func TestBeginForagingInvalidLocation(t *testing.T) {
	r := NewRecord("F1")

	err := r.BeginForaging("volcano")
	if !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("Expected ErrInvalidLocation, got %v", err)
	}
	if r.Status != StatusIdle {
		t.Errorf("Record should be unchanged after rejection, got status %s", r.Status)
	}
}

func TestBeginForagingWhileForaging(t *testing.T) {
	r := NewRecord("F1")
	if err := r.BeginForaging(location.Forest); err != nil {
		t.Fatalf("BeginForaging failed: %v", err)
	}
	r.ProcessTick()
	remainingBefore := r.RemainingTicks

	// Rejected regardless of the requested location, even an invalid one.
	for _, loc := range []location.ID{location.River, location.Forest, "volcano"} {
		err := r.BeginForaging(loc)
		if !errors.Is(err, ErrAlreadyForaging) {
			t.Errorf("BeginForaging(%s): expected ErrAlreadyForaging, got %v", loc, err)
		}
	}

	if r.ForagingLocation != location.Forest {
		t.Errorf("Location changed after rejected command: %s", r.ForagingLocation)
	}
	if r.RemainingTicks != remainingBefore {
		t.Errorf("Remaining changed after rejected command: %d -> %d", remainingBefore, r.RemainingTicks)
	}
}

func TestForagingCompletesAfterFiveTicks(t *testing.T) {
	r := NewRecord("F1")
	if err := r.BeginForaging(location.River); err != nil {
		t.Fatalf("BeginForaging failed: %v", err)
	}

	completions := 0
	for i := 0; i < ForagingDuration; i++ {
		completed, finished := r.ProcessTick()
		if finished {
			completions++
			if completed != location.River {
				t.Errorf("Expected completed location river, got %s", completed)
			}
			if i != ForagingDuration-1 {
				t.Errorf("Trip finished on tick %d, expected tick %d", i+1, ForagingDuration)
			}
		}
	}

	if completions != 1 {
		t.Fatalf("Expected exactly 1 completion, got %d", completions)
	}
	if r.Status != StatusIdle {
		t.Errorf("Expected Idle after completion, got %s", r.Status)
	}
	if r.ForagingLocation != "" {
		t.Errorf("Expected cleared location, got %s", r.ForagingLocation)
	}

	// Further ticks never report another completion.
	if _, finished := r.ProcessTick(); finished {
		t.Errorf("Idle tick reported a completion")
	}
}

func TestApplyDeltasNeverNegative(t *testing.T) {
	r := NewRecord("F1")

	r.ApplyDeltas(map[resource.Kind]int{
		resource.Food:   -1000,
		resource.Water:  25,
		resource.Energy: -100,
	})

	if r.Resources[resource.Food] != 0 {
		t.Errorf("Expected food clamped at 0, got %d", r.Resources[resource.Food])
	}
	if r.Resources[resource.Water] != 125 {
		t.Errorf("Expected water 125, got %d", r.Resources[resource.Water])
	}
	if r.Resources[resource.Energy] != 0 {
		t.Errorf("Expected energy clamped at 0, got %d", r.Resources[resource.Energy])
	}
}

func TestInventoryAccounting(t *testing.T) {
	r := NewRecord("F1")

	r.AddItem(item.KindBerries, 3)
	r.AddItem(item.KindBerries, 2)
	r.AddItem(item.KindWaterskin, 0)  // ignored
	r.AddItem(item.KindWaterskin, -5) // ignored

	if r.Inventory[item.KindBerries] != 5 {
		t.Errorf("Expected 5 berries, got %d", r.Inventory[item.KindBerries])
	}
	if _, ok := r.Inventory[item.KindWaterskin]; ok {
		t.Errorf("Non-positive AddItem should be a no-op")
	}

	if err := r.RemoveItem(item.KindBerries, 4); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if r.Inventory[item.KindBerries] != 1 {
		t.Errorf("Expected 1 berry left, got %d", r.Inventory[item.KindBerries])
	}

	err := r.RemoveItem(item.KindBerries, 2)
	if !errors.Is(err, ErrInsufficientItems) {
		t.Fatalf("Expected ErrInsufficientItems, got %v", err)
	}
	if r.Inventory[item.KindBerries] != 1 {
		t.Errorf("Record changed after rejected removal: %d", r.Inventory[item.KindBerries])
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := NewRecord("F1")
	r.AddItem(item.KindHoneycomb, 2)

	snap := r.Clone()
	r.ApplyDeltas(map[resource.Kind]int{resource.Food: -10})
	r.AddItem(item.KindHoneycomb, 5)

	if snap.Resources[resource.Food] != StartingLevel {
		t.Errorf("Snapshot food mutated: %d", snap.Resources[resource.Food])
	}
	if snap.Inventory[item.KindHoneycomb] != 2 {
		t.Errorf("Snapshot inventory mutated: %d", snap.Inventory[item.KindHoneycomb])
	}
}
