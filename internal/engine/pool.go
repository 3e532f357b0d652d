package engine

import (
	"math/rand"
	"sync"

	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/domain/resource"
	"github.com/openwilds/forage-colony/internal/domain/rules"
	"github.com/openwilds/forage-colony/internal/platform/metrics"
)

// HarvestResult is what one harvest call yields. Amount 0 with
// Empty=true means the cell had nothing to give.
type HarvestResult struct {
	Resource resource.Kind
	Amount   int
	Empty    bool
}

// cell is one harvestable location. Each cell has its own lock so
// harvests at different locations never contend. Harvest and regrowth
// on the same cell are each atomic, but not serialized against each
// other across operation kinds; a harvest racing a regrowth may see
// either value. Accepted.
type cell struct {
	mu        sync.Mutex
	spec      location.Spec
	amount    int
	countdown int
}

// Pool holds the fixed set of location cells. The cell map itself is
// immutable after construction, so lookups need no lock.
type Pool struct {
	cells map[location.ID]*cell
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewPool builds the pool from the given specs, seeding every cell
// with a random amount inside its regrowth range.
func NewPool(specs map[location.ID]location.Spec, rng *rand.Rand) *Pool {
	p := &Pool{
		cells: make(map[location.ID]*cell, len(specs)),
		rng:   rng,
	}
	for id, spec := range specs {
		p.cells[id] = &cell{
			spec:   spec,
			amount: rules.RegrowthAmount(spec, p.roll(spec.RegrowthMin, spec.RegrowthMax)),
		}
	}
	return p
}

// Harvest atomically takes a random draw from the cell, capped at
// what the cell holds. Unknown locations and empty cells return Empty.
func (p *Pool) Harvest(id location.ID) HarvestResult {
	c, ok := p.cells[id]
	if !ok {
		return HarvestResult{Empty: true}
	}

	c.mu.Lock()
	taken := rules.HarvestTake(c.spec, c.amount, p.roll(c.spec.HarvestMin, c.spec.HarvestMax))
	c.amount -= taken
	c.mu.Unlock()

	metrics.Get().RecordHarvest(taken)
	if taken == 0 {
		return HarvestResult{Resource: c.spec.Produces, Empty: true}
	}
	return HarvestResult{Resource: c.spec.Produces, Amount: taken}
}

// RegrowthTick advances every cell's countdown. A cell whose interval
// elapses gets its amount replaced, not topped up, by a fresh draw.
func (p *Pool) RegrowthTick() {
	for _, c := range p.cells {
		c.mu.Lock()
		c.countdown++
		if rules.RegrowthDue(c.spec, c.countdown) {
			c.amount = rules.RegrowthAmount(c.spec, p.roll(c.spec.RegrowthMin, c.spec.RegrowthMax))
			c.countdown = 0
		}
		c.mu.Unlock()
	}
}

// GetLocations returns a snapshot of every cell's current amount.
// Diagnostic only; the values may be stale by the time they are read.
func (p *Pool) GetLocations() map[location.ID]int {
	out := make(map[location.ID]int, len(p.cells))
	for id, c := range p.cells {
		c.mu.Lock()
		out[id] = c.amount
		c.mu.Unlock()
	}
	return out
}

// roll returns a uniform int in [min, max]. rand.Rand is not safe for
// concurrent use, so draws are serialized separately from cell locks.
func (p *Pool) roll(min, max int) int {
	if max <= min {
		return min
	}
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return min + p.rng.Intn(max-min+1)
}
