// Package events provides the append-only ledger of colony activity.
// The in-memory log is bounded and serves live observers; durable
// storage hangs off it through an optional persister.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openwilds/forage-colony/internal/platform/metrics"
)

// EventType defines the category of a colony event.
type EventType string

const (
	EventTypeForagerRegistered EventType = "FORAGER_REGISTERED"
	EventTypeForagerRemoved    EventType = "FORAGER_REMOVED"
	EventTypeForageStarted     EventType = "FORAGE_STARTED"
	EventTypeHarvest           EventType = "HARVEST"
	EventTypeActorSnapshot     EventType = "ACTOR_SNAPSHOT"
	EventTypePresenceSummary   EventType = "PRESENCE_SUMMARY"
	EventTypeItemConsumed      EventType = "ITEM_CONSUMED"
	EventTypeItemGranted       EventType = "ITEM_GRANTED"
	EventTypeChat              EventType = "CHAT"
)

// Event is an immutable record of something that happened in the colony.
// Seq is assigned by the log at append time and is strictly increasing.
type Event struct {
	Seq       int64       `json:"seq"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Tick      int64       `json:"tick"`
}

// Persister defines how an event is durably stored. Implementations
// must tolerate being slow or failing without affecting the log.
type Persister interface {
	Append(event Event) error
}

// Log is the bounded in-memory append-only event log. Old entries are
// trimmed once capacity is exceeded; durable history lives with the
// persister, not here.
type Log struct {
	mu        sync.RWMutex
	events    []Event
	capacity  int
	nextSeq   int64
	persister Persister
}

// NewLog creates an event log holding at most capacity entries in
// memory. The persister is optional.
func NewLog(capacity int, persister Persister) *Log {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Log{
		events:    make([]Event, 0, capacity),
		capacity:  capacity,
		nextSeq:   1,
		persister: persister,
	}
}

// Append records an event, assigning its sequence number and ID.
// Persistence happens off the caller's goroutine so the simulation
// never blocks on storage.
func (l *Log) Append(event Event) Event {
	l.mu.Lock()
	event.Seq = l.nextSeq
	l.nextSeq++
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.events = append(l.events, event)
	if len(l.events) > l.capacity {
		// Drop the oldest entries. Copy so the backing array does not
		// pin trimmed events.
		trimmed := make([]Event, l.capacity)
		copy(trimmed, l.events[len(l.events)-l.capacity:])
		l.events = trimmed
	}
	l.mu.Unlock()

	if l.persister != nil {
		go func(e Event) {
			start := time.Now()
			err := l.persister.Append(e)
			metrics.Get().RecordEventWrite(time.Since(start), err)
		}(event)
	}
	return event
}

// Since returns all retained events with Seq greater than seq, oldest
// first. Callers use the last returned Seq as their next cursor.
func (l *Log) Since(seq int64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := len(l.events)
	for i, e := range l.events {
		if e.Seq > seq {
			idx = i
			break
		}
	}
	if idx == len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-idx)
	copy(out, l.events[idx:])
	return out
}

// Recent returns up to n of the newest retained events, oldest first.
func (l *Log) Recent(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]Event, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// LastSeq returns the sequence number of the newest event, 0 if empty.
func (l *Log) LastSeq() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextSeq - 1
}
