// Package presence maintains the anonymized view of who is doing what.
// Identity concealment is the core product mechanic: nothing exported
// from here may carry an actor identifier.
package presence

import (
	"math/rand"
	"sync"
)

// Activity classifies what an actor is currently doing.
type Activity string

const (
	Idle     Activity = "IDLE"
	Foraging Activity = "FORAGING"
)

// Marker is one anonymized entry in the summary. The position is drawn
// once at registration and never changes, so observers cannot correlate
// movement with identity.
type Marker struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Activity Activity `json:"activity"`
}

// Summary is the aggregate broadcast to observers. It must never
// contain an actor identifier in any field.
type Summary struct {
	TotalCount    int      `json:"total_count"`
	IdleCount     int      `json:"idle_count"`
	ForagingCount int      `json:"foraging_count"`
	Markers       []Marker `json:"markers"`
}

type record struct {
	activity Activity
	x, y     float64
}

// Aggregator tracks per-actor activity and keeps running counters.
// All writes are serialized through its mutex; counters are maintained
// incrementally and must always match a full recount of the map.
type Aggregator struct {
	mu       sync.RWMutex
	records  map[string]*record
	total    int
	idle     int
	foraging int

	// onChange, when set, receives the updated summary after every
	// effective change. Called while holding the lock, so it must not
	// block; hand off to a buffered channel.
	onChange func(Summary)

	rng *rand.Rand
}

// NewAggregator creates an empty aggregator. The rng drives position
// assignment; pass a seeded source for deterministic tests.
func NewAggregator(rng *rand.Rand) *Aggregator {
	return &Aggregator{
		records: make(map[string]*record),
		rng:     rng,
	}
}

// SetOnChange installs the summary emission callback.
func (a *Aggregator) SetOnChange(fn func(Summary)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// Register adds an actor as Idle with a fresh anonymized position.
// Registering an already-present id is a no-op.
func (a *Aggregator) Register(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.records[id]; exists {
		return
	}

	a.records[id] = &record{
		activity: Idle,
		x:        anonymizedCoord(a.rng),
		y:        anonymizedCoord(a.rng),
	}
	a.total++
	a.idle++
	a.emitLocked()
}

// Unregister removes an actor. Unknown ids are ignored.
func (a *Aggregator) Unregister(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, exists := a.records[id]
	if !exists {
		return
	}

	delete(a.records, id)
	a.total--
	switch rec.activity {
	case Idle:
		if a.idle > 0 {
			a.idle--
		}
	case Foraging:
		if a.foraging > 0 {
			a.foraging--
		}
	}
	a.emitLocked()
}

// UpdateActivity swaps an actor's activity class. Unknown ids and
// same-activity updates are no-ops and emit nothing.
func (a *Aggregator) UpdateActivity(id string, activity Activity) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, exists := a.records[id]
	if !exists || rec.activity == activity {
		return
	}

	switch rec.activity {
	case Idle:
		a.idle--
	case Foraging:
		a.foraging--
	}
	switch activity {
	case Idle:
		a.idle++
	case Foraging:
		a.foraging++
	}
	rec.activity = activity
	a.emitLocked()
}

// GetSummary returns the current anonymized aggregate.
func (a *Aggregator) GetSummary() Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summaryLocked()
}

func (a *Aggregator) summaryLocked() Summary {
	markers := make([]Marker, 0, len(a.records))
	for _, rec := range a.records {
		markers = append(markers, Marker{X: rec.x, Y: rec.y, Activity: rec.activity})
	}
	return Summary{
		TotalCount:    a.total,
		IdleCount:     a.idle,
		ForagingCount: a.foraging,
		Markers:       markers,
	}
}

func (a *Aggregator) emitLocked() {
	if a.onChange == nil {
		return
	}
	a.onChange(a.summaryLocked())
}

// anonymizedCoord keeps markers away from the viewport edges.
func anonymizedCoord(rng *rand.Rand) float64 {
	return 0.15 + rng.Float64()*0.70
}
