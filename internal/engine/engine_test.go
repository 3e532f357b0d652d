package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/location"
)

func newTestEngine() *Engine {
	return New(Options{
		TickInterval: time.Hour, // ticks driven manually in tests
		Locations:    pinnedSpecs(),
		Rand:         rand.New(rand.NewSource(3)),
	})
}

func TestRegisterReturnsSameHandleForSameID(t *testing.T) {
	e := newTestEngine()
	defer e.Stop()

	a1 := e.Register(forager.NewRecord("forager-1"))
	a2 := e.Register(forager.NewRecord("forager-1"))

	if a1 != a2 {
		t.Errorf("Expected one handle per id")
	}
	if len(e.Handles()) != 1 {
		t.Errorf("Expected 1 live actor, got %d", len(e.Handles()))
	}
}

func TestRegistrationUpdatesPresence(t *testing.T) {
	e := newTestEngine()
	defer e.Stop()

	e.Register(forager.NewRecord("a"))
	e.Register(forager.NewRecord("b"))

	s := e.Presence().GetSummary()
	if s.TotalCount != 2 || s.IdleCount != 2 {
		t.Errorf("Expected presence 2/2/0, got %d/%d/%d", s.TotalCount, s.IdleCount, s.ForagingCount)
	}
}

func TestTerminateRemovesActor(t *testing.T) {
	e := newTestEngine()
	defer e.Stop()

	a := e.Register(forager.NewRecord("forager-1"))
	e.Terminate("forager-1")

	if _, ok := e.Lookup("forager-1"); ok {
		t.Errorf("Expected actor gone after terminate")
	}
	if _, err := a.GetState(); !errors.Is(err, ErrActorStopped) {
		t.Errorf("Expected ErrActorStopped on terminated handle, got %v", err)
	}
	if s := e.Presence().GetSummary(); s.TotalCount != 0 {
		t.Errorf("Expected empty presence after terminate, got %d", s.TotalCount)
	}

	// Terminating an unknown id is harmless.
	e.Terminate("ghost")
}

// Registration draws anonymized positions while the pool draws harvest
// and regrowth rolls. The two sides hold different locks, so they must
// not share a rand source.
func TestConcurrentRegisterAndHarvest(t *testing.T) {
	specs := pinnedSpecs()
	forest := specs[location.Forest]
	forest.HarvestMin, forest.HarvestMax = 1, 5
	forest.RegrowthMin, forest.RegrowthMax = 10, 30
	specs[location.Forest] = forest

	e := New(Options{
		TickInterval: time.Hour,
		Locations:    specs,
		Rand:         rand.New(rand.NewSource(9)),
	})
	defer e.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			e.Pool().Harvest(location.Forest)
			e.Pool().RegrowthTick()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := fmt.Sprintf("forager-%d", i)
			e.Register(forager.NewRecord(id))
			e.Terminate(id)
		}
	}()
	wg.Wait()
}

func TestEngineStopTwiceIsHarmless(t *testing.T) {
	e := newTestEngine()
	e.Register(forager.NewRecord("forager-1"))
	e.Stop()
	e.Stop()
}

func TestEndToEndForagingThroughRegistry(t *testing.T) {
	var mu sync.Mutex
	var lastSnapshot *forager.Record

	e := New(Options{
		TickInterval: time.Hour,
		Locations:    pinnedSpecs(),
		Rand:         rand.New(rand.NewSource(4)),
		Notify: func(snap *forager.Record) {
			mu.Lock()
			lastSnapshot = snap
			mu.Unlock()
		},
	})
	defer e.Stop()

	a := e.Register(forager.NewRecord("forager-1"))
	if _, err := a.BeginForaging(location.Forest); err != nil {
		t.Fatalf("BeginForaging failed: %v", err)
	}

	mid := e.Presence().GetSummary()
	if mid.ForagingCount != 1 {
		t.Errorf("Expected 1 foraging in presence, got %d", mid.ForagingCount)
	}

	var snap *forager.Record
	for i := 0; i < 5; i++ {
		snap = tickAndSettle(t, a)
	}

	if snap.Status != forager.StatusIdle {
		t.Errorf("Expected Idle after trip, got %s", snap.Status)
	}
	// Pinned forest harvest of 4 minus the tick-5 food consumption.
	if got := snap.Resources["food"]; got != 103 {
		t.Errorf("Expected food 103, got %d", got)
	}

	after := e.Presence().GetSummary()
	if after.ForagingCount != 0 || after.IdleCount != 1 {
		t.Errorf("Expected presence back to idle, got %d/%d", after.IdleCount, after.ForagingCount)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastSnapshot == nil || lastSnapshot.TickCounter != 5 {
		t.Errorf("Expected snapshot notification for tick 5")
	}
}
