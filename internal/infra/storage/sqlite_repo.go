package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event EventRecord) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, colony_id, seq, timestamp, event_type, actor_id, payload, tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.ColonyID, event.Seq, event.Timestamp, event.EventType,
		event.ActorID, string(payloadBytes), event.Tick,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.ColonyID, &e.Seq, &e.Timestamp, &e.EventType,
			&e.ActorID, &payloadStr, &e.Tick,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByColonyID(ctx context.Context, colonyID string) ([]EventRecord, error) {
	query := `SELECT id, colony_id, seq, timestamp, event_type, actor_id, payload, tick FROM events WHERE colony_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, colonyID)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, colonyID, actorID string) ([]EventRecord, error) {
	query := `SELECT id, colony_id, seq, timestamp, event_type, actor_id, payload, tick FROM events WHERE colony_id = ? AND actor_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, colonyID, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, colonyID, eventType string) ([]EventRecord, error) {
	query := `SELECT id, colony_id, seq, timestamp, event_type, actor_id, payload, tick FROM events WHERE colony_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, colonyID, eventType)
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Upsert(ctx context.Context, snapshot ForagerSnapshot) error {
	resourcesJSON, err := json.Marshal(snapshot.Resources)
	if err != nil {
		return fmt.Errorf("failed to marshal resources: %w", err)
	}
	inventoryJSON, err := json.Marshal(snapshot.Inventory)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	query := `
		INSERT INTO foragers (forager_id, colony_id, status, location, resources_json, inventory_json, tick_counter, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(forager_id) DO UPDATE SET
			status=excluded.status,
			location=excluded.location,
			resources_json=excluded.resources_json,
			inventory_json=excluded.inventory_json,
			tick_counter=excluded.tick_counter,
			last_updated=excluded.last_updated
	`
	_, err = r.db.ExecContext(ctx, query,
		snapshot.ForagerID, snapshot.ColonyID, snapshot.Status, snapshot.Location,
		string(resourcesJSON), string(inventoryJSON), snapshot.TickCounter, time.Now(),
	)
	return err
}

func (r *SQLiteSnapshotRepository) GetByForagerID(ctx context.Context, foragerID string) (*ForagerSnapshot, error) {
	query := `SELECT forager_id, colony_id, status, location, resources_json, inventory_json, tick_counter, last_updated FROM foragers WHERE forager_id = ?`
	row := r.db.QueryRowContext(ctx, query, foragerID)

	snap, err := scanSnapshot(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}

func (r *SQLiteSnapshotRepository) GetByColonyID(ctx context.Context, colonyID string) ([]ForagerSnapshot, error) {
	query := `SELECT forager_id, colony_id, status, location, resources_json, inventory_json, tick_counter, last_updated FROM foragers WHERE colony_id = ?`
	rows, err := r.db.QueryContext(ctx, query, colonyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []ForagerSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

func (r *SQLiteSnapshotRepository) Delete(ctx context.Context, foragerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM foragers WHERE forager_id = ?`, foragerID)
	return err
}

func scanSnapshot(scan func(dest ...interface{}) error) (*ForagerSnapshot, error) {
	var s ForagerSnapshot
	var resourcesStr, inventoryStr string
	err := scan(
		&s.ForagerID, &s.ColonyID, &s.Status, &s.Location,
		&resourcesStr, &inventoryStr, &s.TickCounter, &s.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(resourcesStr), &s.Resources); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(inventoryStr), &s.Inventory); err != nil {
		return nil, err
	}
	return &s, nil
}
