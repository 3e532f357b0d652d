// Package network - api.go
// REST surface for observers and operator tooling. The WebSocket feed
// carries the live stream; these endpoints serve polling clients and
// one-shot commands.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/item"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/engine"
	"github.com/openwilds/forage-colony/internal/events"
	"github.com/openwilds/forage-colony/internal/infra/cache"
	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/presence"
)

// API exposes the colony over plain HTTP.
type API struct {
	engine    *engine.Engine
	eventLog  *events.Log
	logger    *logger.Logger
	summaries *cache.SummaryCache
	colonyID  string
}

// NewAPI creates the REST handler set. summaries may be nil; presence
// reads then always go through the aggregator.
func NewAPI(eng *engine.Engine, el *events.Log, log *logger.Logger, summaries *cache.SummaryCache, colonyID string) *API {
	return &API{
		engine:    eng,
		eventLog:  el,
		logger:    log,
		summaries: summaries,
		colonyID:  colonyID,
	}
}

// RegisterRoutes sets up the REST API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/presence", a.HandlePresence)
	mux.HandleFunc("/api/pool", a.HandlePool)
	mux.HandleFunc("/api/events", a.HandleEvents)
	mux.HandleFunc("/api/forager", a.HandleForagerState)
	mux.HandleFunc("/api/forager/forage", a.HandleForage)
	mux.HandleFunc("/api/forager/consume", a.HandleConsume)
	mux.HandleFunc("/api/forager/grant", a.HandleGrant)
}

// HandlePresence returns the anonymized presence summary. Reads go
// through the summary cache, which the presence notifier keeps warm;
// a miss falls back to the aggregator and repopulates.
// GET /api/presence
func (a *API) HandlePresence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if a.summaries != nil {
		var cached presence.Summary
		if err := a.summaries.Get(r.Context(), a.colonyID, &cached); err == nil {
			a.jsonSuccess(w, cached)
			return
		}
	}

	summary := a.engine.Presence().GetSummary()
	if a.summaries != nil {
		_ = a.summaries.Set(r.Context(), a.colonyID, summary)
	}
	a.jsonSuccess(w, summary)
}

// HandlePool returns the current harvestable amounts per location.
// Diagnostic only; values may be stale the moment they are serialized.
// GET /api/pool
func (a *API) HandlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{
		"locations":    a.engine.Pool().GetLocations(),
		"generated_at": time.Now().Format(time.RFC3339),
	})
}

// HandleEvents returns retained ledger entries.
// GET /api/events?since=SEQ&limit=N&type=HARVEST
func (a *API) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entries []events.Event
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := strconv.ParseInt(sinceStr, 10, 64)
		if err != nil {
			a.jsonError(w, "Invalid since cursor", http.StatusBadRequest)
			return
		}
		entries = a.eventLog.Since(since)
	} else {
		limit := 100
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
				limit = n
			}
		}
		entries = a.eventLog.Recent(limit)
	}

	if eventType := r.URL.Query().Get("type"); eventType != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if string(e.Type) == eventType {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	a.jsonSuccess(w, map[string]interface{}{
		"total_events": len(entries),
		"last_seq":     a.eventLog.LastSeq(),
		"events":       entries,
	})
}

// HandleForagerState returns one forager's full snapshot.
// GET /api/forager?id=XXX
func (a *API) HandleForagerState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := a.lookupActor(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	snap, err := actor.GetState()
	if err != nil {
		a.jsonError(w, commandError(err), http.StatusGone)
		return
	}
	a.jsonSuccess(w, snap)
}

// HandleForage starts a foraging trip.
// POST /api/forager/forage {"id": "...", "location": "forest"}
func (a *API) HandleForage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID       string `json:"id"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actor, ok := a.lookupActor(w, req.ID)
	if !ok {
		return
	}

	snap, err := actor.BeginForaging(location.ID(req.Location))
	if err != nil {
		a.jsonError(w, commandError(err), http.StatusConflict)
		return
	}

	a.eventLog.Append(events.Event{
		Type:    events.EventTypeForageStarted,
		ActorID: snap.ID,
		Payload: map[string]string{"location": req.Location},
		Tick:    snap.TickCounter,
	})
	a.logger.Event("FORAGE_STARTED", snap.ID, "location="+req.Location)
	a.jsonSuccess(w, snap)
}

// HandleConsume consumes one inventory item.
// POST /api/forager/consume {"id": "...", "item": "BERRIES"}
func (a *API) HandleConsume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID   string `json:"id"`
		Item string `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actor, ok := a.lookupActor(w, req.ID)
	if !ok {
		return
	}

	snap, err := actor.ConsumeItem(item.Kind(req.Item))
	if err != nil {
		a.jsonError(w, commandError(err), http.StatusConflict)
		return
	}

	a.eventLog.Append(events.Event{
		Type:    events.EventTypeItemConsumed,
		ActorID: snap.ID,
		Payload: map[string]string{"item": req.Item},
		Tick:    snap.TickCounter,
	})
	a.jsonSuccess(w, snap)
}

// HandleGrant adds items to a forager's inventory.
// POST /api/forager/grant {"id": "...", "item": "BERRIES", "amount": 2}
func (a *API) HandleGrant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID     string `json:"id"`
		Item   string `json:"item"`
		Amount int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}

	actor, ok := a.lookupActor(w, req.ID)
	if !ok {
		return
	}

	snap, err := actor.GrantItem(item.Kind(req.Item), req.Amount)
	if err != nil {
		a.jsonError(w, commandError(err), http.StatusConflict)
		return
	}

	a.eventLog.Append(events.Event{
		Type:    events.EventTypeItemGranted,
		ActorID: snap.ID,
		Payload: map[string]interface{}{"item": req.Item, "amount": req.Amount},
		Tick:    snap.TickCounter,
	})
	a.jsonSuccess(w, snap)
}

func (a *API) lookupActor(w http.ResponseWriter, id string) (*engine.Actor, bool) {
	if id == "" {
		a.jsonError(w, "Missing forager id", http.StatusBadRequest)
		return nil, false
	}
	actor, ok := a.engine.Lookup(id)
	if !ok {
		a.jsonError(w, "Unknown forager", http.StatusNotFound)
		return nil, false
	}
	return actor, true
}

// jsonError sends an error response.
func (a *API) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func (a *API) jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
