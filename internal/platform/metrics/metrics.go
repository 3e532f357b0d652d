// Package metrics provides observability for the colony server.
// Counters are cheap atomics so hot paths (ticks, harvests, broadcasts)
// can record without contention.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Scheduler metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	DroppedTicks   int64 // deliveries to stopped/saturated actors
	LastTickTime   time.Time

	// Harvest metrics
	HarvestCount    int64
	HarvestedAmount int64
	EmptyHarvests   int64

	// Presence metrics
	PresenceUpdates int64

	// Event ledger metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSDroppedBroadcasts int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a full scheduler fan-out cycle.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic check but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordDroppedTick records a tick delivery that was silently dropped.
func (c *Collector) RecordDroppedTick() {
	atomic.AddInt64(&c.DroppedTicks, 1)
}

// RecordHarvest records the outcome of one pool harvest.
func (c *Collector) RecordHarvest(amount int) {
	atomic.AddInt64(&c.HarvestCount, 1)
	if amount == 0 {
		atomic.AddInt64(&c.EmptyHarvests, 1)
		return
	}
	atomic.AddInt64(&c.HarvestedAmount, int64(amount))
}

// RecordPresenceUpdate records an effective presence change.
func (c *Collector) RecordPresenceUpdate() {
	atomic.AddInt64(&c.PresenceUpdates, 1)
}

// RecordEventWrite records an event write to the ledger store.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// WebSocket accounting.

func (c *Collector) ConnOpened()       { atomic.AddInt64(&c.WSConnectionsActive, 1) }
func (c *Collector) ConnClosed()       { atomic.AddInt64(&c.WSConnectionsActive, -1) }
func (c *Collector) MessageIn()        { atomic.AddInt64(&c.WSMessagesIn, 1) }
func (c *Collector) MessageOut()       { atomic.AddInt64(&c.WSMessagesOut, 1) }
func (c *Collector) DroppedBroadcast() { atomic.AddInt64(&c.WSDroppedBroadcasts, 1) }
func (c *Collector) WSError()          { atomic.AddInt64(&c.WSErrors, 1) }

// Snapshot captures the collector state for JSON export.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`

	TickCount        int64   `json:"tick_count"`
	TickLatencyAvgMS float64 `json:"tick_latency_avg_ms"`
	TickLatencyMaxMS float64 `json:"tick_latency_max_ms"`
	DroppedTicks     int64   `json:"dropped_ticks"`

	HarvestCount    int64 `json:"harvest_count"`
	HarvestedAmount int64 `json:"harvested_amount"`
	EmptyHarvests   int64 `json:"empty_harvests"`

	PresenceUpdates int64 `json:"presence_updates"`

	EventsWritten    int64 `json:"events_written"`
	EventWriteErrors int64 `json:"event_write_errors"`

	WSConnectionsActive int64 `json:"ws_connections_active"`
	WSMessagesIn        int64 `json:"ws_messages_in"`
	WSMessagesOut       int64 `json:"ws_messages_out"`
	WSDroppedBroadcasts int64 `json:"ws_dropped_broadcasts"`
	WSErrors            int64 `json:"ws_errors"`
}

// TakeSnapshot builds a consistent-enough view for reporting.
func (c *Collector) TakeSnapshot() Snapshot {
	s := Snapshot{
		UptimeSeconds:       time.Since(c.StartTime).Seconds(),
		TickCount:           atomic.LoadInt64(&c.TickCount),
		DroppedTicks:        atomic.LoadInt64(&c.DroppedTicks),
		HarvestCount:        atomic.LoadInt64(&c.HarvestCount),
		HarvestedAmount:     atomic.LoadInt64(&c.HarvestedAmount),
		EmptyHarvests:       atomic.LoadInt64(&c.EmptyHarvests),
		PresenceUpdates:     atomic.LoadInt64(&c.PresenceUpdates),
		EventsWritten:       atomic.LoadInt64(&c.EventsWritten),
		EventWriteErrors:    atomic.LoadInt64(&c.EventWriteErrors),
		WSConnectionsActive: atomic.LoadInt64(&c.WSConnectionsActive),
		WSMessagesIn:        atomic.LoadInt64(&c.WSMessagesIn),
		WSMessagesOut:       atomic.LoadInt64(&c.WSMessagesOut),
		WSDroppedBroadcasts: atomic.LoadInt64(&c.WSDroppedBroadcasts),
		WSErrors:            atomic.LoadInt64(&c.WSErrors),
	}

	if s.TickCount > 0 {
		s.TickLatencyAvgMS = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(s.TickCount) / 1e6
	}
	s.TickLatencyMaxMS = float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6

	return s
}

// Handler returns metrics as JSON.
// GET /metrics
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(collector.TakeSnapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
// GET /metrics/prometheus
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP colony_tick_count Total scheduler fan-out cycles\n")
		fmt.Fprintf(w, "# TYPE colony_tick_count counter\n")
		fmt.Fprintf(w, "colony_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP colony_tick_latency_max_ms Maximum fan-out latency\n")
		fmt.Fprintf(w, "# TYPE colony_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "colony_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP colony_dropped_ticks Tick deliveries silently dropped\n")
		fmt.Fprintf(w, "# TYPE colony_dropped_ticks counter\n")
		fmt.Fprintf(w, "colony_dropped_ticks %d\n\n", atomic.LoadInt64(&c.DroppedTicks))

		fmt.Fprintf(w, "# HELP colony_harvest_count Total pool harvests\n")
		fmt.Fprintf(w, "# TYPE colony_harvest_count counter\n")
		fmt.Fprintf(w, "colony_harvest_count %d\n\n", atomic.LoadInt64(&c.HarvestCount))

		fmt.Fprintf(w, "# HELP colony_harvested_amount Total units harvested\n")
		fmt.Fprintf(w, "# TYPE colony_harvested_amount counter\n")
		fmt.Fprintf(w, "colony_harvested_amount %d\n\n", atomic.LoadInt64(&c.HarvestedAmount))

		fmt.Fprintf(w, "# HELP colony_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE colony_events_written counter\n")
		fmt.Fprintf(w, "colony_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP colony_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE colony_event_write_errors counter\n")
		fmt.Fprintf(w, "colony_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP colony_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE colony_ws_connections gauge\n")
		fmt.Fprintf(w, "colony_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP colony_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE colony_ws_messages_total counter\n")
		fmt.Fprintf(w, "colony_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "colony_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
