// Package network carries the WebSocket and REST surface of the colony
// server. Observers connect anonymously; the hub fans colony events and
// presence summaries out to them.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/openwilds/forage-colony/internal/engine"
	"github.com/openwilds/forage-colony/internal/events"
	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/platform/metrics"
	"github.com/openwilds/forage-colony/internal/presence"
)

// Hub maintains the set of active clients and broadcasts messages to
// them. Broadcast submission is non-blocking: when the hub or a client
// falls behind, messages are dropped rather than stalling the
// simulation.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	engine     *engine.Engine

	clientSendBuffer int
	cooldown         time.Duration
}

// NewHub initializes a new WebSocket hub over the engine.
func NewHub(eng *engine.Engine, log *logger.Logger, broadcastBuffer, clientSendBuffer int, cooldown time.Duration) *Hub {
	if broadcastBuffer <= 0 {
		broadcastBuffer = 256
	}
	if clientSendBuffer <= 0 {
		clientSendBuffer = 64
	}
	return &Hub{
		broadcast:        make(chan []byte, broadcastBuffer),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		clients:          make(map[*Client]bool),
		logger:           log,
		engine:           eng,
		clientSendBuffer: clientSendBuffer,
		cooldown:         cooldown,
	}
}

// Run starts the hub's main loop to handle client connections and
// broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().ConnOpened()
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				metrics.Get().ConnClosed()
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.trySend(message) {
					metrics.Get().MessageOut()
				} else {
					// Slow consumer; cut it loose.
					client.closeSend()
					delete(h.clients, client)
					metrics.Get().ConnClosed()
					metrics.Get().DroppedBroadcast()
				}
			}
			h.mu.Unlock()
		}
	}
}

// envelope is the wire frame for every outbound message.
type envelope struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// BroadcastEvent serializes a colony event and queues it for fan-out.
// A full broadcast queue drops the message.
func (h *Hub) BroadcastEvent(event events.Event) {
	h.enqueue(envelope{Kind: "event", Payload: event})
}

// BroadcastSummary pushes the latest presence summary to all observers.
func (h *Hub) BroadcastSummary(summary presence.Summary) {
	h.enqueue(envelope{Kind: "presence", Payload: summary})
}

func (h *Hub) enqueue(env envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("Failed to serialize %s broadcast: %v", env.Kind, err)
		metrics.Get().WSError()
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		metrics.Get().DroppedBroadcast()
	}
}

// StartEventPoller spawns a goroutine that follows the event log by
// sequence cursor and pushes new entries to the hub.
func (h *Hub) StartEventPoller(ctx context.Context, log *events.Log) {
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		var cursor int64

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				for _, event := range log.Since(cursor) {
					h.BroadcastEvent(event)
					cursor = event.Seq
				}
			}
		}
	}()
}
