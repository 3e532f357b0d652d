// Package engine contains the simulation core: the actor registry, the
// tick scheduler, and the shared resource pool.
//
// ARCHITECTURAL RULE: the Engine does NOT mutate forager records
// directly. Each record is owned by its Actor; the engine only holds
// handles and fans ticks out to them.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/presence"
)

// Options configures a new Engine.
type Options struct {
	TickInterval time.Duration
	MailboxSize  int
	Locations    map[location.ID]location.Spec
	Rand         *rand.Rand
	Logger       *logger.Logger

	// Notify, when set, receives every actor snapshot emission.
	Notify SnapshotSink
}

// Engine wires the scheduler, pool, presence aggregator and the set of
// live actors together. Actors are addressed by the handle returned at
// registration, or looked up by id for external commands.
type Engine struct {
	pool      *Pool
	presence  *presence.Aggregator
	scheduler *Scheduler
	logger    *logger.Logger
	notify    SnapshotSink

	mailboxSize int

	mu     sync.RWMutex
	actors map[string]*Actor
}

// New builds an engine from options, applying defaults for anything
// unset.
func New(opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 5 * time.Second
	}
	if opts.Locations == nil {
		opts.Locations = location.Registry
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Engine{
		pool: NewPool(opts.Locations, opts.Rand),
		// The pool and the aggregator each serialize draws under their
		// own lock, so they must not share one rand.Rand.
		presence:    presence.NewAggregator(rand.New(rand.NewSource(opts.Rand.Int63()))),
		logger:      opts.Logger,
		notify:      opts.Notify,
		mailboxSize: opts.MailboxSize,
		actors:      make(map[string]*Actor),
	}
	e.scheduler = NewScheduler(opts.TickInterval, e, e.pool, opts.Logger)
	return e
}

// Start launches the tick loop. Call once.
func (e *Engine) Start(ctx context.Context) {
	go e.scheduler.Start(ctx)
}

// Stop halts the scheduler and every live actor.
func (e *Engine) Stop() {
	e.scheduler.Stop()

	e.mu.Lock()
	actors := make([]*Actor, 0, len(e.actors))
	for _, a := range e.actors {
		actors = append(actors, a)
	}
	e.actors = make(map[string]*Actor)
	e.mu.Unlock()

	for _, a := range actors {
		a.Stop()
	}
}

// Register creates an actor around rec and returns its handle. A
// second registration under the same id returns the existing handle.
func (e *Engine) Register(rec *forager.Record) *Actor {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.actors[rec.ID]; ok {
		return existing
	}

	a := NewActor(rec, e.pool, e.presence, e.notify, e.logger, e.mailboxSize)
	e.actors[rec.ID] = a
	if e.logger != nil {
		e.logger.Info("Forager registered with engine: %s", rec.ID)
	}
	return a
}

// Terminate stops and removes the actor with the given id.
func (e *Engine) Terminate(id string) {
	e.mu.Lock()
	a, ok := e.actors[id]
	if ok {
		delete(e.actors, id)
	}
	e.mu.Unlock()

	if ok {
		a.Stop()
	}
}

// Lookup returns the live actor handle for id, if any.
func (e *Engine) Lookup(id string) (*Actor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.actors[id]
	return a, ok
}

// Handles returns the current set of live actor handles.
func (e *Engine) Handles() []*Actor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Actor, 0, len(e.actors))
	for _, a := range e.actors {
		out = append(out, a)
	}
	return out
}

// Targets implements TargetSource for the scheduler.
func (e *Engine) Targets() []TickTarget {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]TickTarget, 0, len(e.actors))
	for _, a := range e.actors {
		out = append(out, a)
	}
	return out
}

// Pool exposes the resource pool for diagnostics.
func (e *Engine) Pool() *Pool {
	return e.pool
}

// Presence exposes the aggregator for summary reads and broadcast wiring.
func (e *Engine) Presence() *presence.Aggregator {
	return e.presence
}
