// Package main is the entry point for the forage colony server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/openwilds/forage-colony/internal/domain/forager"
	"github.com/openwilds/forage-colony/internal/engine"
	"github.com/openwilds/forage-colony/internal/events"
	"github.com/openwilds/forage-colony/internal/infra/cache"
	"github.com/openwilds/forage-colony/internal/infra/storage"
	"github.com/openwilds/forage-colony/internal/network"
	"github.com/openwilds/forage-colony/internal/platform/config"
	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/platform/metrics"
	"github.com/openwilds/forage-colony/internal/presence"
)

// sqlitePersisterAdapter translates ledger events to storage records.
type sqlitePersisterAdapter struct {
	repo     *storage.SQLiteEventRepository
	colonyID string
}

func (a *sqlitePersisterAdapter) Append(event events.Event) error {
	payloadBytes, _ := json.Marshal(event.Payload)
	var payloadMap map[string]interface{}
	json.Unmarshal(payloadBytes, &payloadMap)

	record := storage.EventRecord{
		ID:        event.ID,
		ColonyID:  a.colonyID,
		Seq:       event.Seq,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Payload:   payloadMap,
		Tick:      event.Tick,
	}
	return a.repo.Append(context.Background(), record)
}

// bootstrapForagers loads persisted foragers, seeding a fresh colony
// when the database holds none.
func bootstrapForagers(ctx context.Context, cfg config.Config, snapRepo *storage.SQLiteSnapshotRepository, eng *engine.Engine, eventLog *events.Log, appLogger *logger.Logger) {
	appLogger.Info("Checking DB for existing foragers...")

	reconstructor := storage.NewReconstructor(snapRepo)
	records, err := reconstructor.RebuildColony(ctx, cfg.ColonyID)
	if err != nil {
		appLogger.Error("Failed to rebuild colony from DB: %v", err)
		return
	}

	if len(records) == 0 {
		appLogger.Info("Database empty. Seeding %d foragers...", cfg.SeedForagers)
		for i := 0; i < cfg.SeedForagers; i++ {
			rec := forager.NewRecord(uuid.NewString())
			if err := snapRepo.Upsert(ctx, storage.SnapshotFromRecord(cfg.ColonyID, rec)); err != nil {
				appLogger.Error("Failed to persist seeded forager: %v", err)
			}
			eng.Register(rec)
			eventLog.Append(events.Event{
				Type:    events.EventTypeForagerRegistered,
				ActorID: rec.ID,
			})
		}
		return
	}

	appLogger.Info("Reconstructing %d foragers from SQLite state...", len(records))
	for _, rec := range records {
		eng.Register(rec)
	}
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	log.Println("[COLONY-SERVER] Initializing forage colony server...")

	appLogger := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	appLogger.Info("Initializing SQLite database '%s'...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	snapRepo := storage.NewSQLiteSnapshotRepository(db)

	appLogger.Info("Bootstrapping event ledger...")
	eventLog := events.NewLog(cfg.EventLogCapacity, &sqlitePersisterAdapter{
		repo:     eventRepo,
		colonyID: cfg.ColonyID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv := cache.NewMemoryKV()
	snapshotCache := cache.NewSnapshotCache(kv)
	summaryCache := cache.NewSummaryCache(kv)

	appLogger.Info("Bootstrapping simulation engine...")
	eng := engine.New(engine.Options{
		TickInterval: cfg.TickInterval,
		MailboxSize:  cfg.Buffers.ActorMailbox,
		Locations:    cfg.LocationSpecs(),
		Logger:       appLogger,
		Notify: func(snap *forager.Record) {
			// Latest-snapshot cache; loss on overwrite is fine.
			_ = snapshotCache.Set(ctx, cfg.ColonyID, snap.ID, snap)
		},
	})

	bootstrapForagers(ctx, cfg, snapRepo, eng, eventLog, appLogger)
	eng.Start(ctx)

	// Automated state backup routine. Reads prefer the snapshot cache
	// fed by actor notifications; a miss falls back to a direct state
	// read. A slow disk never blocks the simulation.
	go func() {
		backupTicker := time.NewTicker(5 * time.Second)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				for _, actor := range eng.Handles() {
					var snap forager.Record
					if err := snapshotCache.Get(ctx, cfg.ColonyID, actor.ID(), &snap); err != nil {
						fresh, err := actor.GetState()
						if err != nil {
							continue
						}
						snap = *fresh
					}
					_ = snapRepo.Upsert(ctx, storage.SnapshotFromRecord(cfg.ColonyID, &snap))
				}
			}
		}
	}()

	appLogger.Info("Bootstrapping WebSocket hub...")
	hub := network.NewHub(eng, appLogger, cfg.Buffers.HubBroadcast, cfg.Buffers.ClientSend, cfg.CommandCooldown)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	// Presence changes fan out through the hub to every connected
	// observer and keep the summary cache warm for REST polling. The
	// callback must not block.
	eng.Presence().SetOnChange(func(summary presence.Summary) {
		hub.BroadcastSummary(summary)
		_ = summaryCache.Set(ctx, cfg.ColonyID, summary)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWS(hub, eventLog, w, r)
	})

	api := network.NewAPI(eng, eventLog, appLogger, summaryCache, cfg.ColonyID)
	api.RegisterRoutes(mux)

	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[COLONY-SERVER] HTTP API & WS server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[COLONY-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[COLONY-SERVER] Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	// Final snapshot pass before the actors go away.
	for _, actor := range eng.Handles() {
		if snap, err := actor.GetState(); err == nil {
			_ = snapRepo.Upsert(context.Background(), storage.SnapshotFromRecord(cfg.ColonyID, snap))
		}
	}
	eng.Stop()
}
