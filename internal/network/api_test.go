package network

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/domain/location"
	"github.com/openwilds/forage-colony/internal/engine"
	"github.com/openwilds/forage-colony/internal/events"
	"github.com/openwilds/forage-colony/internal/infra/cache"
	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/presence"
)

func newTestAPI(t *testing.T) (*API, *engine.Engine, *events.Log) {
	t.Helper()
	eng := engine.New(engine.Options{
		TickInterval: time.Hour,
		Rand:         rand.New(rand.NewSource(11)),
	})
	t.Cleanup(eng.Stop)
	log := events.NewLog(64, nil)
	return NewAPI(eng, log, logger.New(), nil, ""), eng, log
}

func TestHandlePresence(t *testing.T) {
	api, eng, _ := newTestAPI(t)
	eng.Register(forager.NewRecord("forager-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
	rec := httptest.NewRecorder()
	api.HandlePresence(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var summary struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if summary.TotalCount != 1 {
		t.Errorf("Expected total_count 1, got %d", summary.TotalCount)
	}
	if strings.Contains(rec.Body.String(), "forager-1") {
		t.Errorf("Presence response leaks forager id: %s", rec.Body.String())
	}
}

func TestPresenceServedFromSummaryCache(t *testing.T) {
	eng := engine.New(engine.Options{
		TickInterval: time.Hour,
		Rand:         rand.New(rand.NewSource(12)),
	})
	t.Cleanup(eng.Stop)
	summaries := cache.NewSummaryCache(cache.NewMemoryKV())
	api := NewAPI(eng, events.NewLog(8, nil), logger.New(), summaries, "COLONY_1")

	eng.Register(forager.NewRecord("forager-1"))

	// First read misses, falls back to the aggregator and warms the cache.
	rec := httptest.NewRecorder()
	api.HandlePresence(rec, httptest.NewRequest(http.MethodGet, "/api/presence", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var warmed presence.Summary
	if err := summaries.Get(context.Background(), "COLONY_1", &warmed); err != nil {
		t.Fatalf("Expected summary cache warmed after the miss, got %v", err)
	}
	if warmed.TotalCount != 1 {
		t.Errorf("Expected cached total 1, got %d", warmed.TotalCount)
	}

	// A fresh summary in the cache is served without touching the
	// aggregator.
	if err := summaries.Set(context.Background(), "COLONY_1", presence.Summary{TotalCount: 7}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	rec = httptest.NewRecorder()
	api.HandlePresence(rec, httptest.NewRequest(http.MethodGet, "/api/presence", nil))
	var got presence.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if got.TotalCount != 7 {
		t.Errorf("Expected the cached summary served, got total %d", got.TotalCount)
	}
}

func TestHandleForageLifecycle(t *testing.T) {
	api, eng, log := newTestAPI(t)
	eng.Register(forager.NewRecord("forager-1"))

	body := strings.NewReader(`{"id":"forager-1","location":"forest"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/forager/forage", body)
	rec := httptest.NewRecorder()
	api.HandleForage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap forager.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if snap.Status != forager.StatusForaging || snap.ForagingLocation != location.Forest {
		t.Errorf("Expected foraging at forest, got %s at %s", snap.Status, snap.ForagingLocation)
	}
	if len(log.Recent(0)) != 1 {
		t.Errorf("Expected a FORAGE_STARTED ledger entry")
	}

	// Second forage while busy conflicts.
	body = strings.NewReader(`{"id":"forager-1","location":"river"}`)
	rec = httptest.NewRecorder()
	api.HandleForage(rec, httptest.NewRequest(http.MethodPost, "/api/forager/forage", body))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for busy forager, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already_foraging") {
		t.Errorf("Expected already_foraging error, got %s", rec.Body.String())
	}
}

func TestHandleForageUnknownForager(t *testing.T) {
	api, _, _ := newTestAPI(t)

	body := strings.NewReader(`{"id":"ghost","location":"forest"}`)
	rec := httptest.NewRecorder()
	api.HandleForage(rec, httptest.NewRequest(http.MethodPost, "/api/forager/forage", body))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown forager, got %d", rec.Code)
	}
}

func TestHandleEventsSinceCursor(t *testing.T) {
	api, _, log := newTestAPI(t)
	for i := 0; i < 5; i++ {
		log.Append(events.Event{Type: events.EventTypeHarvest})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?since=3", nil)
	rec := httptest.NewRecorder()
	api.HandleEvents(rec, req)

	var resp struct {
		TotalEvents int            `json:"total_events"`
		LastSeq     int64          `json:"last_seq"`
		Events      []events.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if resp.TotalEvents != 2 || resp.LastSeq != 5 {
		t.Errorf("Expected 2 events with last_seq 5, got %d/%d", resp.TotalEvents, resp.LastSeq)
	}
}

func TestHandlePoolMethodGuard(t *testing.T) {
	api, _, _ := newTestAPI(t)
	rec := httptest.NewRecorder()
	api.HandlePool(rec, httptest.NewRequest(http.MethodPost, "/api/pool", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
