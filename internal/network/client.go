package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/engine"
	"github.com/openwilds/forage-colony/internal/events"
	"github.com/openwilds/forage-colony/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Longest chat text relayed through the ledger, in runes.
	maxChatRunes = 280
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observers connect from anywhere; anonymity is the product.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Command represents an incoming request from a connected client.
type Command struct {
	Type      string          `json:"type"` // "FORAGE", "STATE", "CONSUME", "GRANT", "CHAT"
	ForagerID string          `json:"forager_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Client holds one WebSocket connection and its outbound queue.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	eventLog       *events.Log
	lastActionTime time.Time

	// sendMu guards closed and every send on the queue. The hub closes
	// the queue for slow consumers while the read pump replies on it;
	// both paths go through trySend/closeSend.
	sendMu sync.Mutex
	closed bool
}

// trySend queues data for the write pump. Returns false when the queue
// is full or already closed.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ServeWS upgrades an HTTP request, registers the client with the hub
// and starts its pumps.
func ServeWS(hub *Hub, log *events.Log, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed: %v", err)
		metrics.Get().WSError()
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.clientSendBuffer),
		eventLog: log,
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the engine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket read error: %v", err)
				metrics.Get().WSError()
			}
			break
		}
		metrics.Get().MessageIn()

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Error("Failed to parse command from WebSocket: %v", err)
			continue
		}

		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd Command) {
	// State reads are cheap and exempt from the cooldown.
	if cmd.Type != "STATE" {
		if time.Since(c.lastActionTime) < c.hub.cooldown {
			c.hub.logger.Warn("Rate limit exceeded for command from %s", cmd.ForagerID)
			c.reply("error", map[string]string{"error": "rate limited"})
			return
		}
		c.lastActionTime = time.Now()
	}

	switch cmd.Type {
	case "FORAGE":
		c.handleForage(cmd)
	case "STATE":
		c.handleState(cmd)
	case "CONSUME":
		c.handleConsume(cmd)
	case "GRANT":
		c.handleGrant(cmd)
	case "CHAT":
		c.handleChat(cmd)
	default:
		c.hub.logger.Warn("Unknown command type: %s", cmd.Type)
		c.reply("error", map[string]string{"error": "unknown command"})
	}
}

func (c *Client) lookup(id string) (*engine.Actor, bool) {
	actor, ok := c.hub.engine.Lookup(id)
	if !ok {
		c.hub.logger.Warn("Command for unknown forager: %s", id)
		c.reply("error", map[string]string{"error": "unknown forager"})
	}
	return actor, ok
}

func (c *Client) handleForage(cmd Command) {
	var parsed struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(cmd.Payload, &parsed); err != nil {
		c.reply("error", map[string]string{"error": "bad payload"})
		return
	}

	actor, ok := c.lookup(cmd.ForagerID)
	if !ok {
		return
	}

	snap, err := actor.BeginForaging(location.ID(parsed.Location))
	if err != nil {
		c.reply("error", map[string]string{"error": commandError(err)})
		return
	}

	c.eventLog.Append(events.Event{
		Type:    events.EventTypeForageStarted,
		ActorID: snap.ID,
		Payload: map[string]string{"location": parsed.Location},
		Tick:    snap.TickCounter,
	})
	c.hub.logger.Event("FORAGE_STARTED", snap.ID, "location="+parsed.Location)
	c.reply("state", snap)
}

func (c *Client) handleState(cmd Command) {
	actor, ok := c.lookup(cmd.ForagerID)
	if !ok {
		return
	}
	snap, err := actor.GetState()
	if err != nil {
		c.reply("error", map[string]string{"error": commandError(err)})
		return
	}
	c.reply("state", snap)
}

func (c *Client) handleConsume(cmd Command) {
	var parsed struct {
		Item string `json:"item"`
	}
	if err := json.Unmarshal(cmd.Payload, &parsed); err != nil {
		c.reply("error", map[string]string{"error": "bad payload"})
		return
	}

	actor, ok := c.lookup(cmd.ForagerID)
	if !ok {
		return
	}

	snap, err := actor.ConsumeItem(item.Kind(parsed.Item))
	if err != nil {
		c.reply("error", map[string]string{"error": commandError(err)})
		return
	}

	c.eventLog.Append(events.Event{
		Type:    events.EventTypeItemConsumed,
		ActorID: snap.ID,
		Payload: map[string]string{"item": parsed.Item},
		Tick:    snap.TickCounter,
	})
	c.reply("state", snap)
}

func (c *Client) handleGrant(cmd Command) {
	var parsed struct {
		Item   string `json:"item"`
		Amount int    `json:"amount"`
	}
	if err := json.Unmarshal(cmd.Payload, &parsed); err != nil {
		c.reply("error", map[string]string{"error": "bad payload"})
		return
	}
	if parsed.Amount <= 0 {
		parsed.Amount = 1
	}

	actor, ok := c.lookup(cmd.ForagerID)
	if !ok {
		return
	}

	snap, err := actor.GrantItem(item.Kind(parsed.Item), parsed.Amount)
	if err != nil {
		c.reply("error", map[string]string{"error": commandError(err)})
		return
	}

	c.eventLog.Append(events.Event{
		Type:    events.EventTypeItemGranted,
		ActorID: snap.ID,
		Payload: map[string]interface{}{"item": parsed.Item, "amount": parsed.Amount},
		Tick:    snap.TickCounter,
	})
	c.reply("state", snap)
}

// handleChat relays a free-text message through the event log. No
// state machine involved; the ledger's bound is the only retention.
func (c *Client) handleChat(cmd Command) {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(cmd.Payload, &parsed); err != nil || parsed.Text == "" {
		c.reply("error", map[string]string{"error": "bad payload"})
		return
	}
	if utf8.RuneCountInString(parsed.Text) > maxChatRunes {
		// Truncate on a rune boundary; a byte slice could split a
		// multi-byte character and relay invalid UTF-8.
		runes := []rune(parsed.Text)
		parsed.Text = string(runes[:maxChatRunes])
	}

	c.eventLog.Append(events.Event{
		Type:    events.EventTypeChat,
		ActorID: cmd.ForagerID,
		Payload: map[string]string{"text": parsed.Text},
	})
}

// reply sends a direct response to this client only.
func (c *Client) reply(kind string, payload interface{}) {
	data, err := json.Marshal(envelope{Kind: kind, Payload: payload})
	if err != nil {
		metrics.Get().WSError()
		return
	}
	if c.trySend(data) {
		metrics.Get().MessageOut()
	} else {
		metrics.Get().DroppedBroadcast()
	}
}

// commandError maps domain errors to stable client-facing strings.
func commandError(err error) string {
	switch {
	case errors.Is(err, forager.ErrAlreadyForaging):
		return "already_foraging"
	case errors.Is(err, forager.ErrInvalidLocation):
		return "invalid_location"
	case errors.Is(err, forager.ErrInsufficientItems):
		return "insufficient_items"
	case errors.Is(err, engine.ErrActorStopped):
		return "forager_gone"
	default:
		return "internal_error"
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
