package engine

import (
	"errors"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/domain/resource"
	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/platform/metrics"
	"github.com/openwilds/forage-colony/internal/presence"
)

// ErrActorStopped is returned for commands submitted after Stop.
var ErrActorStopped = errors.New("actor stopped")

// Harvester is what an actor needs from the resource pool.
type Harvester interface {
	Harvest(id location.ID) HarvestResult
}

// PresenceSink is what an actor needs from the presence aggregator.
type PresenceSink interface {
	Register(id string)
	Unregister(id string)
	UpdateActivity(id string, activity presence.Activity)
}

// SnapshotSink receives the latest record snapshot after every tick or
// successful command. Implementations must not block.
type SnapshotSink func(snapshot *forager.Record)

// Actor owns one forager record exclusively. All mutation funnels
// through a single goroutine draining the mailbox, so command and tick
// processing for one record never interleave.
type Actor struct {
	record   *forager.Record
	pool     Harvester
	presence PresenceSink
	notify   SnapshotSink
	logger   *logger.Logger

	mailbox chan func()
	done    chan struct{}
}

// NewActor wraps a record and starts its mailbox goroutine. The record
// must not be touched by the caller afterwards.
func NewActor(rec *forager.Record, pool Harvester, pres PresenceSink, notify SnapshotSink, log *logger.Logger, mailboxSize int) *Actor {
	if mailboxSize <= 0 {
		mailboxSize = 16
	}
	a := &Actor{
		record:   rec,
		pool:     pool,
		presence: pres,
		notify:   notify,
		logger:   log,
		mailbox:  make(chan func(), mailboxSize),
		done:     make(chan struct{}),
	}
	if pres != nil {
		pres.Register(rec.ID)
	}
	go a.run()
	return a
}

// ID returns the owned record's identity.
func (a *Actor) ID() string {
	return a.record.ID
}

func (a *Actor) run() {
	for {
		select {
		case <-a.done:
			return
		case fn := <-a.mailbox:
			fn()
		}
	}
}

// Stop shuts the mailbox down. Pending and future deliveries are
// dropped; the aggregator forgets the actor.
func (a *Actor) Stop() {
	select {
	case <-a.done:
		return
	default:
	}
	close(a.done)
	if a.presence != nil {
		a.presence.Unregister(a.record.ID)
	}
}

// OnTick queues one tick of processing. Delivery is non-blocking: a
// saturated or stopped actor drops the tick silently.
func (a *Actor) OnTick() {
	select {
	case <-a.done:
		metrics.Get().RecordDroppedTick()
		return
	default:
	}

	select {
	case a.mailbox <- a.processTick:
	default:
		metrics.Get().RecordDroppedTick()
	}
}

// processTick runs on the mailbox goroutine.
func (a *Actor) processTick() {
	completedAt, finished := a.record.ProcessTick()

	if finished {
		result := a.pool.Harvest(completedAt)
		if !result.Empty {
			a.record.ApplyDeltas(map[resource.Kind]int{result.Resource: result.Amount})
		}
		if a.presence != nil {
			a.presence.UpdateActivity(a.record.ID, presence.Idle)
			metrics.Get().RecordPresenceUpdate()
		}
		if a.logger != nil {
			a.logger.Event("FORAGE_COMPLETE", a.record.ID,
				"location="+string(completedAt)+" gained "+string(result.Resource))
		}
	}

	a.emit()
}

// BeginForaging submits a foraging command and waits for the actor to
// process it. The returned snapshot reflects the post-command record.
func (a *Actor) BeginForaging(loc location.ID) (*forager.Record, error) {
	return a.submit(func() (*forager.Record, error) {
		if err := a.record.BeginForaging(loc); err != nil {
			return nil, err
		}
		if a.presence != nil {
			a.presence.UpdateActivity(a.record.ID, presence.Foraging)
			metrics.Get().RecordPresenceUpdate()
		}
		return a.record.Clone(), nil
	})
}

// ConsumeItem removes one unit of kind from the inventory and restores
// the resource the item is defined to restore.
func (a *Actor) ConsumeItem(kind item.Kind) (*forager.Record, error) {
	return a.submit(func() (*forager.Record, error) {
		def, ok := item.Get(kind)
		if !ok {
			return nil, forager.ErrInsufficientItems
		}
		if err := a.record.RemoveItem(kind, 1); err != nil {
			return nil, err
		}
		a.record.ApplyDeltas(map[resource.Kind]int{def.Restores: def.Amount})
		return a.record.Clone(), nil
	})
}

// GrantItem adds amount units of kind to the inventory.
func (a *Actor) GrantItem(kind item.Kind, amount int) (*forager.Record, error) {
	return a.submit(func() (*forager.Record, error) {
		a.record.AddItem(kind, amount)
		return a.record.Clone(), nil
	})
}

// GetState returns a read-only snapshot of the current record.
func (a *Actor) GetState() (*forager.Record, error) {
	return a.submit(func() (*forager.Record, error) {
		return a.record.Clone(), nil
	})
}

type reply struct {
	snapshot *forager.Record
	err      error
}

// submit runs fn on the mailbox goroutine and waits for its result.
func (a *Actor) submit(fn func() (*forager.Record, error)) (*forager.Record, error) {
	ch := make(chan reply, 1)
	task := func() {
		snap, err := fn()
		if err == nil && snap != nil {
			a.emit()
		}
		ch <- reply{snapshot: snap, err: err}
	}

	select {
	case a.mailbox <- task:
	case <-a.done:
		return nil, ErrActorStopped
	}

	select {
	case r := <-ch:
		return r.snapshot, r.err
	case <-a.done:
		return nil, ErrActorStopped
	}
}

// emit pushes the latest snapshot to the subscriber, if any.
func (a *Actor) emit() {
	if a.notify == nil {
		return
	}
	a.notify(a.record.Clone())
}
